package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/common/httpx"
	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/agents/externo"
	"github.com/fialabdata/agenthub/internal/hub/agents/mermaid"
	"github.com/fialabdata/agenthub/internal/hub/agents/rag"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/dispatcher"
	"github.com/fialabdata/agenthub/internal/hub/memory"
)

// knowledgeBase is implemented by agents with a managed vector index.
type knowledgeBase interface {
	Ingest(ctx context.Context, kr rag.KnowledgeRequest) (*rag.IngestResult, error)
	Stats(ctx context.Context) *rag.KnowledgeStats
	SuggestSources(ctx context.Context, domain string) ([]string, error)
}

// serviceProbe is implemented by agents that can check their remote service.
type serviceProbe interface {
	Status(ctx context.Context) *externo.ServiceStatus
}

type agentsInfoRsp struct {
	Agents []dispatcher.AgentInfo `json:"agents"`
}

func (s *HubServer) agentsInfo(r *http.Request) (*httpx.Response, error) {
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &agentsInfoRsp{Agents: s.dispatcher.ListAgents()},
	}, nil
}

type healthRsp struct {
	dispatcher.HealthReport
	Environment map[string]bool `json:"environment"`
	Memory      memory.Stats    `json:"memory"`
	Version     string          `json:"version"`
}

func (s *HubServer) health(r *http.Request) (*httpx.Response, error) {
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: &healthRsp{
			HealthReport: s.dispatcher.Health(),
			Environment:  s.creds.Present(),
			Memory:       s.dispatcher.Memory().Stats(),
			Version:      Version,
		},
	}, nil
}

// GetVersionRsp is the body of /version.
type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ConfigVersion string `json:"configVersion"`
}

func (s *HubServer) version(r *http.Request) (*httpx.Response, error) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: &GetVersionRsp{
			ServerVersion: "agenthub: " + Version,
			ConfigVersion: config.ConfigFormatVersion,
		},
	}, nil
}

// lookup returns the agent registered for t. Unknown and unavailable agents are
// both reported as 503 on the pass-through routes.
func (s *HubServer) lookup(t agent.Type) (agent.Agent, error) {
	a, err := s.dispatcher.Lookup(t)
	if err != nil {
		return nil, httpx.ErrServiceUnavailable(err.Error())
	}
	return a, nil
}

func requireSession(r *http.Request) (string, error) {
	id := sessionID(r)
	if id == "" {
		return "", httpx.ErrInvalidRequest("session id is required (" + SessionIDHeader + " header or session_id query)")
	}
	return id, nil
}

type statusRsp struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type historyRsp struct {
	SessionID string        `json:"session_id"`
	AgentType string        `json:"agent_type"`
	History   []memory.Turn `json:"history"`
}

func (s *HubServer) sessionHistory(r *http.Request) (*httpx.Response, error) {
	id := chi.URLParam(r, "sessionID")
	t := chi.URLParam(r, "agentType")
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: &historyRsp{
			SessionID: id,
			AgentType: t,
			History:   s.dispatcher.Memory().Context(id, t),
		},
	}, nil
}

func (s *HubServer) sessionReset(r *http.Request) (*httpx.Response, error) {
	id := chi.URLParam(r, "sessionID")
	t := chi.URLParam(r, "agentType")
	s.dispatcher.Memory().Reset(id, t)
	log.Ctx(r.Context()).Info().Str("session_id", id).Str("agent_type", t).Msg("conversation reset")
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &statusRsp{Status: "success", Message: "Conversa resetada com sucesso"},
	}, nil
}

func (s *HubServer) externoStatus(r *http.Request) (*httpx.Response, error) {
	a, err := s.lookup(externo.Type)
	if err != nil {
		return nil, err
	}
	probe, ok := a.(serviceProbe)
	if !ok {
		return nil, httpx.ErrServiceUnavailable("Agente Externo não disponível")
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   probe.Status(r.Context()),
	}, nil
}

// resetFor clears the caller's buffer for agent type t.
func (s *HubServer) resetFor(r *http.Request, t agent.Type, msg string) (*httpx.Response, error) {
	if _, err := s.lookup(t); err != nil {
		return nil, err
	}
	id, err := requireSession(r)
	if err != nil {
		return nil, err
	}
	s.dispatcher.Memory().Reset(id, string(t))
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &statusRsp{Status: "success", Message: msg},
	}, nil
}

func (s *HubServer) externoReset(r *http.Request) (*httpx.Response, error) {
	return s.resetFor(r, externo.Type, "Conversa resetada com sucesso")
}

func (s *HubServer) mermaidReset(r *http.Request) (*httpx.Response, error) {
	return s.resetFor(r, mermaid.Type, "Histórico de diagramas resetado com sucesso")
}

func (s *HubServer) mermaidDiagramTypes(r *http.Request) (*httpx.Response, error) {
	if _, err := s.lookup(mermaid.Type); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]any{"supported_diagrams": mermaid.DiagramTypes()},
	}, nil
}

func (s *HubServer) mermaidHistory(r *http.Request) (*httpx.Response, error) {
	if _, err := s.lookup(mermaid.Type); err != nil {
		return nil, err
	}
	id, err := requireSession(r)
	if err != nil {
		return nil, err
	}
	turns := s.dispatcher.Memory().Context(id, string(mermaid.Type))
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]any{"diagram_history": mermaid.History(turns)},
	}, nil
}

func (s *HubServer) knowledgeBase() (knowledgeBase, error) {
	a, err := s.lookup(rag.Type)
	if err != nil {
		return nil, err
	}
	kb, ok := a.(knowledgeBase)
	if !ok {
		return nil, httpx.ErrServiceUnavailable("Agente RAG não disponível")
	}
	return kb, nil
}

func (s *HubServer) ragKnowledge(r *http.Request) (*httpx.Response, error) {
	kb, err := s.knowledgeBase()
	if err != nil {
		return nil, err
	}
	var kr rag.KnowledgeRequest
	if err := httpx.GetRequestData(r, &kr); err != nil {
		return nil, err
	}
	res, err := kb.Ingest(r.Context(), kr)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   res,
	}, nil
}

func (s *HubServer) ragStats(r *http.Request) (*httpx.Response, error) {
	kb, err := s.knowledgeBase()
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   kb.Stats(r.Context()),
	}, nil
}

type suggestRsp struct {
	Domain           string   `json:"domain"`
	SuggestedSources []string `json:"suggested_sources"`
}

func (s *HubServer) ragSuggestSources(r *http.Request) (*httpx.Response, error) {
	kb, err := s.knowledgeBase()
	if err != nil {
		return nil, err
	}
	domain := chi.URLParam(r, "domain")
	urls, err := kb.SuggestSources(r.Context(), domain)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &suggestRsp{Domain: domain, SuggestedSources: urls},
	}, nil
}
