// Package mermaid turns natural language descriptions into Mermaid diagrams.
package mermaid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/memory"
	"github.com/fialabdata/agenthub/internal/hub/orchestrator"
)

const Type agent.Type = "mermaid"

const systemPrompt = `Você é um especialista em criação de diagramas Mermaid.
Sua função é converter descrições em linguagem natural em diagramas Mermaid bem estruturados.

Capabilities:
- Sequence Diagrams: para mostrar interações entre entidades
- Flowcharts: para mostrar fluxos de processo
- Class Diagrams: para mostrar estruturas OOP
- State Diagrams: para mostrar máquinas de estado
- Gantt Charts: para mostrar cronogramas
- ER Diagrams: para mostrar modelos de dados
- User Journeys: para mostrar a experiência do usuário

Sempre:
1. Gere código Mermaid válido e bem formatado
2. Use nomes descritivos para elementos
3. Inclua comentários quando necessário
4. Mantenha o diagrama claro e legível
5. Sugira melhorias quando apropriado

Output Format:
- Código Mermaid completo e válido
- Explicação clara do diagrama
- Sugestões de melhorias se aplicável`

const userPrompt = `User Request: %s

Requested Diagram Type: %s

Please generate a Mermaid diagram based on this description. Follow these guidelines:
1. Create valid Mermaid syntax for %s
2. Use clear, descriptive labels
3. Ensure proper flow and structure
4. Add styling when appropriate
5. Make it professional and easy to understand

Provide:
1. Complete Mermaid code (wrapped in ` + "```mermaid ... ```" + `)
2. Brief explanation of the diagram
3. Any suggestions for improvements or alternatives

Focus on clarity and accuracy.`

// Options select the diagram kind.
type Options struct {
	DiagramType string `json:"diagram_type" validate:"oneof=sequence flowchart classDiagram stateDiagram gantt erDiagram journey"`
}

type Agent struct {
	cfg     config.MermaidConfig
	llm     llm.Client
	policy  orchestrator.Policy
	handler agent.Agent
}

func New(cfg config.MermaidConfig, client llm.Client) *Agent {
	a := &Agent{
		cfg:    cfg,
		llm:    client,
		policy: orchestrator.NewPolicy(cfg.Timeout.Duration),
	}
	a.handler = agent.Bind(Type, a.generate)
	return a
}

func (a *Agent) Handle(ctx context.Context, req agent.Request) agent.Result {
	return a.handler.Handle(ctx, req)
}

func (a *Agent) generate(ctx context.Context, req agent.Request) (*agent.Reply, error) {
	opts := Options{DiagramType: DefaultDiagramType}
	if err := agent.DecodeOptions(req.Options, &opts); err != nil {
		return nil, err
	}
	kind, _ := lookupType(opts.DiagramType)

	messages := []llm.Message{llm.System(systemPrompt)}
	messages = append(messages, llm.FromHistory(req.History)...)
	messages = append(messages, llm.User(fmt.Sprintf(userPrompt, req.Message, kind.Type, kind.Type)))

	rsp, err := orchestrator.Do(ctx, a.policy, "openai", func(ctx context.Context) (*llm.ChatResponse, error) {
		return a.llm.Chat(ctx, llm.ChatRequest{
			Model:       a.cfg.Model,
			Messages:    messages,
			Temperature: llm.Temperature(0.1),
		})
	})
	if err != nil {
		return nil, err
	}

	code, found := extractCode(rsp.Content)
	if !found {
		log.Ctx(ctx).Warn().Str("diagram_type", kind.Type).Msg("no diagram in model reply, using fallback")
	}
	d := &agent.Diagram{
		Type:        kind.Type,
		Title:       kind.Name,
		Code:        code,
		Explanation: extractExplanation(rsp.Content),
		Suggestions: extractSuggestions(rsp.Content),
	}
	return &agent.Reply{Text: format(d), Payload: d}, nil
}

func format(d *agent.Diagram) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎨 **Diagrama %s Gerado**\n\n", cases.Title(language.Und).String(d.Type))
	fmt.Fprintf(&b, "📝 **Explicação:**\n%s\n\n", d.Explanation)
	fmt.Fprintf(&b, "📊 **Código Mermaid:**\n```mermaid\n%s\n```\n\n", d.Code)
	b.WriteString("💡 **Sugestões:**")
	for i, s := range d.Suggestions {
		fmt.Fprintf(&b, "\n%d. %s", i+1, s)
	}
	return b.String()
}

// HistoryEntry is a diagram generated earlier in a session.
type HistoryEntry struct {
	Prompt    string         `json:"prompt"`
	Diagram   *agent.Diagram `json:"diagram"`
	Timestamp string         `json:"timestamp"`
}

// History collects the diagrams recorded in a session's mermaid buffer, pairing
// each with the request that produced it.
func History(turns []memory.Turn) []HistoryEntry {
	out := []HistoryEntry{}
	prompt := ""
	for _, t := range turns {
		if t.Role == memory.RoleUser {
			prompt = t.Content
			continue
		}
		d, ok := t.Metadata.(*agent.Diagram)
		if !ok {
			continue
		}
		out = append(out, HistoryEntry{
			Prompt:    prompt,
			Diagram:   d,
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return out
}
