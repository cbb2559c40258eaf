package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/agents/externo"
	"github.com/fialabdata/agenthub/internal/hub/agents/mermaid"
	"github.com/fialabdata/agenthub/internal/hub/agents/rag"
	"github.com/fialabdata/agenthub/internal/hub/backends/flowise"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm"
	"github.com/fialabdata/agenthub/internal/hub/backends/llm/llmfake"
	"github.com/fialabdata/agenthub/internal/hub/backends/pinecone"
	"github.com/fialabdata/agenthub/internal/hub/config"
	"github.com/fialabdata/agenthub/internal/hub/dispatcher"
	"github.com/fialabdata/agenthub/internal/hub/memory"
)

type fakeIndex struct {
	mu       sync.Mutex
	upserted int
}

func (f *fakeIndex) Upsert(ctx context.Context, vectors []pinecone.Vector, ns string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted += len(vectors)
	return len(vectors), nil
}

func (f *fakeIndex) Query(ctx context.Context, vector []float64, topK int, ns string) ([]pinecone.Match, error) {
	return nil, nil
}

func (f *fakeIndex) Stats(ctx context.Context) (*pinecone.IndexStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &pinecone.IndexStats{TotalVectors: int64(f.upserted), Dimension: 1536}, nil
}

type fakeFlowise struct{}

func (fakeFlowise) Predict(ctx context.Context, p flowise.Prediction) (*flowise.Answer, error) {
	return &flowise.Answer{Text: "flowise says hi"}, nil
}
func (fakeFlowise) Ping(ctx context.Context) error { return nil }
func (fakeFlowise) URL() string                    { return "https://flowise.test/api/v1/prediction/x" }

const mermaidReply = "```mermaid\nflowchart TD\n    A[Início] --> B[Fim]\n```\n\n## Explicação\nUm fluxo simples."

// newTestServer registers a stub mcp agent, real rag, externo and mermaid agents
// over fakes, and a workflow agent left unavailable.
func newTestServer(t *testing.T) (*HubServer, *fakeIndex) {
	t.Helper()
	cfg := config.Default()
	creds := config.Credentials{config.OpenAIAPIKey: "sk-test", config.PineconeAPIKey: "pc-test", config.ExternoAgentURL: "x"}
	d := dispatcher.New(memory.NewStore(cfg.Memory.Capacity), creds)

	stub := agent.Bind("mcp", func(ctx context.Context, req agent.Request) (*agent.Reply, error) {
		return &agent.Reply{Text: "stub answer"}, nil
	})
	idx := &fakeIndex{}
	mermaidLLM := &llmfake.Fake{ChatFunc: func(req llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Content: mermaidReply}, nil
	}}

	regs := []struct {
		desc agent.Descriptor
		impl agent.Agent
	}{
		{agent.Descriptor{Type: "mcp", Name: "MCP", RequiredCredentials: []string{config.OpenAIAPIKey}}, stub},
		{agent.Descriptor{Type: "workflow", Name: "Workflow", RequiredCredentials: []string{config.FirecrawlAPIKey}}, stub},
		{agent.Descriptor{Type: rag.Type, Name: "RAG", RequiredCredentials: []string{config.PineconeAPIKey}}, rag.New(cfg.Agents.RAG, &llmfake.Fake{}, idx, nil)},
		{agent.Descriptor{Type: externo.Type, Name: "Externo", RequiredCredentials: []string{config.ExternoAgentURL}}, externo.New(cfg.Agents.Externo, fakeFlowise{})},
		{agent.Descriptor{Type: mermaid.Type, Name: "Mermaid", RequiredCredentials: []string{config.OpenAIAPIKey}}, mermaid.New(cfg.Agents.Mermaid, mermaidLLM)},
	}
	for _, r := range regs {
		require.NoError(t, d.Register(r.desc, r.impl))
	}

	s, err := CreateNewServer(d, cfg, creds)
	require.NoError(t, err)
	s.MountHandlers()
	return s, idx
}

func executeTestRequest(t *testing.T, s *HubServer, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func newEmptyDispatcher() *dispatcher.Dispatcher {
	return dispatcher.New(memory.NewStore(10), config.Credentials{})
}
