// Package externo forwards conversations to an external Flowise chatflow.
package externo

import (
	"context"
	"fmt"
	"strings"

	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/backends/flowise"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/memory"
	"github.com/fialabdata/agenthub/internal/hub/orchestrator"
)

const Type agent.Type = "externo"

const (
	maxPreviews   = 2
	previewLength = 100
)

// Predictor is the part of the Flowise client the agent uses.
type Predictor interface {
	Predict(ctx context.Context, p flowise.Prediction) (*flowise.Answer, error)
	Ping(ctx context.Context) error
	URL() string
}

type Agent struct {
	cfg     config.ExternoConfig
	flowise Predictor
	policy  orchestrator.Policy
	handler agent.Agent
}

func New(cfg config.ExternoConfig, p Predictor) *Agent {
	a := &Agent{
		cfg:     cfg,
		flowise: p,
		policy:  orchestrator.NewPolicy(cfg.Timeout.Duration),
	}
	a.handler = agent.Bind(Type, a.predict)
	return a
}

func (a *Agent) Handle(ctx context.Context, req agent.Request) agent.Result {
	return a.handler.Handle(ctx, req)
}

func (a *Agent) predict(ctx context.Context, req agent.Request) (*agent.Reply, error) {
	p := flowise.Prediction{
		Question:  req.Message,
		SessionID: req.ConversationID,
		History:   history(req.History, a.cfg.HistoryLimit),
	}
	ans, err := orchestrator.Do(ctx, a.policy, "flowise", func(ctx context.Context) (*flowise.Answer, error) {
		return a.flowise.Predict(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	sources := make([]agent.Source, 0, len(ans.SourceDocuments))
	for _, d := range ans.SourceDocuments {
		sources = append(sources, agent.Source{Content: d.PageContent, Metadata: d.Metadata})
	}
	return &agent.Reply{
		Text:    format(ans),
		Payload: &agent.Citations{Sources: sources},
	}, nil
}

// history keeps the last limit turns in the chatflow's role names.
func history(turns []memory.Turn, limit int) []flowise.HistoryMessage {
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]flowise.HistoryMessage, 0, len(turns))
	for _, t := range turns {
		role := flowise.RoleAPI
		if t.Role == memory.RoleUser {
			role = flowise.RoleUser
		}
		out = append(out, flowise.HistoryMessage{Role: role, Content: t.Content})
	}
	return out
}

// format appends a summary of the sources and of the chatflow's conversation
// length to the answer.
func format(ans *flowise.Answer) string {
	var b strings.Builder
	b.WriteString(ans.Text)
	if n := len(ans.SourceDocuments); n > 0 {
		fmt.Fprintf(&b, "\n\n📚 **Baseado em %d fonte(s)**", n)
		for i, d := range ans.SourceDocuments {
			if i == maxPreviews {
				break
			}
			if d.PageContent == "" {
				continue
			}
			preview := []rune(d.PageContent)
			if len(preview) > previewLength {
				preview = preview[:previewLength]
			}
			fmt.Fprintf(&b, "\n%d. %s...", i+1, string(preview))
		}
	}
	if ans.HistoryLength > 0 {
		fmt.Fprintf(&b, "\n\n💬 **Contexto conversacional: %d interações**", ans.HistoryLength)
	}
	return b.String()
}

// ServiceStatus is the outcome of a liveness probe.
type ServiceStatus struct {
	Status   string `json:"status"` // available or unavailable
	Service  string `json:"service"`
	Endpoint string `json:"endpoint"`
	Error    string `json:"error,omitempty"`
}

// Status probes the chatflow with a test question.
func (a *Agent) Status(ctx context.Context) *ServiceStatus {
	st := &ServiceStatus{Status: "available", Service: "Flowise API", Endpoint: a.flowise.URL()}
	if err := a.policy.Call(ctx, "flowise", a.flowise.Ping); err != nil {
		st.Status = "unavailable"
		st.Error = err.Error()
	}
	return st
}
