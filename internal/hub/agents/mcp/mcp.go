// Package mcp implements the agent that answers with the tools of an MCP server.
// Each request starts a fresh tool server session and runs a tool calling loop
// against the model until it produces a final answer.
package mcp

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm"
	"github.com/fialabdata/agenthub/internal/hub/backends/mcptools"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/orchestrator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const Type agent.Type = "mcp"

const backendName = "mcp"

var (
	ErrToolLoop     = agent.ErrBackend.New("model did not finish within the tool round limit")
	ErrUnknownTool  = agent.ErrBackend.New("model requested an unknown tool")
	ErrEmptyAnswer  = agent.ErrInvalidReply.New("model returned an empty answer")
	errBadArguments = agent.ErrBackend.New("tool arguments are not a JSON object")
)

const systemPrompt = `Você é um assistente especializado em pesquisa e análise de produtos, ferramentas, soluções e serviços.

Você pode:
- Fazer scraping de sites para extrair informações
- Buscar e comparar produtos/serviços
- Analisar preços, características e ofertas
- Fornecer recomendações técnicas objetivas

Use as ferramentas Firecrawl disponíveis para:
- Fazer scraping de páginas específicas
- Buscar informações relevantes na web
- Extrair dados estruturados de sites

Sempre forneça respostas úteis, concisas e bem estruturadas.`

type Agent struct {
	cfg      config.MCPConfig
	llm      llm.Client
	launcher mcptools.Launcher
	policy   orchestrator.Policy
	handler  agent.Agent
}

func New(cfg config.MCPConfig, client llm.Client, launcher mcptools.Launcher) *Agent {
	a := &Agent{
		cfg:      cfg,
		llm:      client,
		launcher: launcher,
		policy:   orchestrator.NewPolicy(cfg.Timeout.Duration),
	}
	a.handler = agent.Bind(Type, a.run)
	return a
}

func (a *Agent) Handle(ctx context.Context, req agent.Request) agent.Result {
	return a.handler.Handle(ctx, req)
}

func (a *Agent) run(ctx context.Context, req agent.Request) (*agent.Reply, error) {
	ctx, cancel := a.policy.Bound(ctx)
	defer cancel()
	logger := log.Ctx(ctx)

	session, err := orchestrator.Do(ctx, a.policy, backendName, a.launcher.Launch)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close MCP session")
		}
	}()

	tools, err := orchestrator.Do(ctx, a.policy, backendName, session.Tools)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(tools))
	for _, t := range tools {
		known[t.Name] = true
	}

	msgs := []llm.Message{llm.System(systemPrompt)}
	msgs = append(msgs, llm.FromHistory(req.History)...)
	msgs = append(msgs, llm.User(truncate(req.Message, a.cfg.MaxInput)))

	for round := 1; round <= a.cfg.MaxRounds; round++ {
		chatReq := llm.ChatRequest{
			Model:       a.cfg.Model,
			Messages:    msgs,
			Temperature: llm.Temperature(0),
			Tools:       tools,
		}
		rsp, err := orchestrator.Do(ctx, a.policy, "openai", func(ctx context.Context) (*llm.ChatResponse, error) {
			return a.llm.Chat(ctx, chatReq)
		})
		if err != nil {
			return nil, err
		}
		if len(rsp.ToolCalls) == 0 {
			text := strings.TrimSpace(rsp.Content)
			if text == "" {
				return nil, ErrEmptyAnswer
			}
			logger.Info().Int("rounds", round).Msg("tool loop finished")
			return &agent.Reply{Text: text}, nil
		}

		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: rsp.Content, ToolCalls: rsp.ToolCalls})
		for _, call := range rsp.ToolCalls {
			out, err := a.callTool(ctx, session, known, call)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				logger.Warn().Err(err).Str("tool", call.Name).Msg("tool call failed")
				out = "Erro: " + err.Error()
			}
			msgs = append(msgs, llm.Message{Role: llm.RoleTool, Content: out, ToolCallID: call.ID})
		}
	}
	return nil, ErrToolLoop.New(fmt.Sprintf("no final answer after %d rounds", a.cfg.MaxRounds))
}

// callTool runs one requested tool. Its error is reported back to the model.
func (a *Agent) callTool(ctx context.Context, session mcptools.Session, known map[string]bool, call llm.ToolCall) (string, error) {
	if !known[call.Name] {
		return "", ErrUnknownTool.New("unknown tool " + call.Name)
	}
	args := map[string]any{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return "", errBadArguments.MsgErr("invalid arguments for "+call.Name, err)
		}
	}
	log.Ctx(ctx).Debug().Str("tool", call.Name).Msg("calling tool")
	return orchestrator.Do(ctx, a.policy, backendName, func(ctx context.Context) (string, error) {
		return session.Call(ctx, call.Name, args)
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}
