package mcp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm/llmfake"
	"github.com/fialabdata/agenthub/internal/hub/backends/mcptools"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/memory"
)

type fakeSession struct {
	mu     sync.Mutex
	calls  []string
	args   []map[string]any
	err    error
	closed bool
}

func (s *fakeSession) Tools(ctx context.Context) ([]llm.Tool, error) {
	return []llm.Tool{{
		Name:        "firecrawl_scrape",
		Description: "Scrape a page",
		Parameters:  map[string]any{"type": "object"},
	}}, nil
}

func (s *fakeSession) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	s.args = append(s.args, args)
	if s.err != nil {
		return "", s.err
	}
	return "# Example Domain", nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func launcherFor(s *fakeSession) mcptools.Launcher {
	return mcptools.LauncherFunc(func(ctx context.Context) (mcptools.Session, error) {
		return s, nil
	})
}

func newAgent(fake *llmfake.Fake, l mcptools.Launcher) *Agent {
	cfg := config.Default().Agents.MCP
	cfg.Timeout = config.Duration{Duration: 2 * time.Second}
	a := New(cfg, fake, l)
	a.policy.Delay = time.Millisecond
	return a
}

func toolCall(id, name, args string) *llm.ChatResponse {
	return &llm.ChatResponse{
		ToolCalls:    []llm.ToolCall{{ID: id, Name: name, Arguments: args}},
		FinishReason: "tool_calls",
	}
}

func TestToolLoop(t *testing.T) {
	s := &fakeSession{}
	fake := &llmfake.Fake{Replies: []llmfake.Reply{
		{Response: toolCall("call_1", "firecrawl_scrape", `{"url":"https://example.com"}`)},
		{Response: &llm.ChatResponse{Content: "A página é um domínio de exemplo.", FinishReason: "stop"}},
	}}
	a := newAgent(fake, launcherFor(s))

	res := a.Handle(context.Background(), agent.Request{
		Message: "O que tem em https://example.com?",
		History: []memory.Turn{memory.UserTurn("oi"), memory.AssistantTurn("olá", nil)},
	})
	require.True(t, res.IsSuccess(), res.Error)
	assert.Equal(t, "A página é um domínio de exemplo.", res.Response)
	assert.Nil(t, res.Payload)
	assert.True(t, s.closed)
	assert.Equal(t, []string{"firecrawl_scrape"}, s.calls)
	assert.Equal(t, "https://example.com", s.args[0]["url"])

	require.Equal(t, 2, fake.Calls())
	first := fake.Requests[0]
	assert.Equal(t, "gpt-4.1-mini", first.Model)
	require.Len(t, first.Tools, 1)
	require.Len(t, first.Messages, 4)
	assert.Equal(t, llm.RoleSystem, first.Messages[0].Role)
	assert.Equal(t, "oi", first.Messages[1].Content)

	second := fake.Requests[1].Messages
	require.Len(t, second, 6)
	assert.Equal(t, llm.RoleAssistant, second[4].Role)
	assert.Equal(t, llm.RoleTool, second[5].Role)
	assert.Equal(t, "call_1", second[5].ToolCallID)
	assert.Equal(t, "# Example Domain", second[5].Content)
}

func TestToolErrorsGoBackToModel(t *testing.T) {
	s := &fakeSession{err: mcptools.ErrToolCall.New("firecrawl_scrape: rate limited")}
	fake := &llmfake.Fake{Replies: []llmfake.Reply{
		{Response: toolCall("call_1", "firecrawl_scrape", `{"url":"https://example.com"}`)},
		{Response: toolCall("call_2", "firecrawl_crawl", `{}`)},
		{Response: toolCall("call_3", "firecrawl_scrape", `not json`)},
		{Response: &llm.ChatResponse{Content: "Não consegui acessar a página."}},
	}}
	a := newAgent(fake, launcherFor(s))

	res := a.Handle(context.Background(), agent.Request{Message: "scrape example.com"})
	require.True(t, res.IsSuccess(), res.Error)
	assert.Equal(t, []string{"firecrawl_scrape"}, s.calls)

	msgs := fake.Requests[3].Messages
	var toolReplies []string
	for _, m := range msgs {
		if m.Role == llm.RoleTool {
			toolReplies = append(toolReplies, m.Content)
		}
	}
	require.Len(t, toolReplies, 3)
	assert.Contains(t, toolReplies[0], "rate limited")
	assert.Contains(t, toolReplies[1], "unknown tool firecrawl_crawl")
	assert.Contains(t, toolReplies[2], "invalid arguments for firecrawl_scrape")
}

func TestRoundLimit(t *testing.T) {
	s := &fakeSession{}
	fake := &llmfake.Fake{ChatFunc: func(req llm.ChatRequest) (*llm.ChatResponse, error) {
		return toolCall("call", "firecrawl_scrape", `{"url":"https://example.com"}`), nil
	}}
	a := newAgent(fake, launcherFor(s))
	a.cfg.MaxRounds = 3

	res := a.Handle(context.Background(), agent.Request{Message: "loop forever"})
	require.False(t, res.IsSuccess())
	assert.Equal(t, agent.CodeBackendError, res.ErrorCode)
	assert.Contains(t, res.Error, "no final answer after 3 rounds")
	assert.Equal(t, 3, fake.Calls())
	assert.True(t, s.closed)
}

func TestLaunchFailure(t *testing.T) {
	fake := &llmfake.Fake{}
	a := newAgent(fake, mcptools.LauncherFunc(func(ctx context.Context) (mcptools.Session, error) {
		return nil, mcptools.ErrClientInit.MsgErr("failed to create MCP client", errors.New("npx: not found"))
	}))

	res := a.Handle(context.Background(), agent.Request{Message: "hello"})
	require.False(t, res.IsSuccess())
	assert.Equal(t, agent.CodeBackendError, res.ErrorCode)
	assert.Contains(t, res.Error, "mcp request failed")
	assert.Zero(t, fake.Calls())
}

func TestEmptyAnswer(t *testing.T) {
	fake := (&llmfake.Fake{}).Text("  ")
	a := newAgent(fake, launcherFor(&fakeSession{}))

	res := a.Handle(context.Background(), agent.Request{Message: "hello"})
	require.False(t, res.IsSuccess())
	assert.Equal(t, agent.CodeBackendError, res.ErrorCode)
}

func TestInputTruncated(t *testing.T) {
	fake := (&llmfake.Fake{}).Text("ok")
	a := newAgent(fake, launcherFor(&fakeSession{}))
	a.cfg.MaxInput = 10

	res := a.Handle(context.Background(), agent.Request{Message: strings.Repeat("é", 50)})
	require.True(t, res.IsSuccess(), res.Error)
	msgs := fake.Requests[0].Messages
	assert.Equal(t, strings.Repeat("é", 10), msgs[len(msgs)-1].Content)
}
