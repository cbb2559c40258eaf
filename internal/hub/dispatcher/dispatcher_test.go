package dispatcher

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fialabdata/agenthub/internal/common/httpclient"
	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/memory"
	"github.com/fialabdata/agenthub/internal/hub/orchestrator"
)

type credMap map[string]bool

func (c credMap) Has(key string) bool { return c[key] }

// stubBackend plays the role of a third-party API.
type stubBackend struct {
	calls   int
	replies []error
	text    string
	sources []string
	conf    float64
}

func (s *stubBackend) call(ctx context.Context) error {
	s.calls++
	if len(s.replies) >= s.calls {
		return s.replies[s.calls-1]
	}
	return nil
}

func stubAgent(t agent.Type, b *stubBackend) agent.Agent {
	policy := orchestrator.Policy{Timeout: time.Second, Attempts: 2, Delay: time.Millisecond}
	return agent.Bind(t, func(ctx context.Context, req agent.Request) (*agent.Reply, error) {
		if err := policy.Call(ctx, "stub", b.call); err != nil {
			return nil, err
		}
		var sources []agent.Source
		for _, id := range b.sources {
			sources = append(sources, agent.Source{ID: id})
		}
		return &agent.Reply{
			Text:    b.text,
			Payload: &agent.Citations{Sources: sources, Confidence: agent.Ptr(b.conf)},
		}, nil
	})
}

func descriptor(t agent.Type, creds ...string) agent.Descriptor {
	return agent.Descriptor{Type: t, Name: string(t) + " agent", RequiredCredentials: creds}
}

func newTestDispatcher(t *testing.T, b *stubBackend) *Dispatcher {
	d := New(memory.NewStore(10), credMap{"OPENAI_API_KEY": true, "PINECONE_API_KEY": true})
	require.NoError(t, d.Register(descriptor("rag", "OPENAI_API_KEY", "PINECONE_API_KEY"), stubAgent("rag", b)))
	require.NoError(t, d.Register(descriptor("mcp", "OPENAI_API_KEY", "FIRECRAWL_API_KEY"), stubAgent("mcp", b)))
	return d
}

func TestRegister(t *testing.T) {
	d := newTestDispatcher(t, &stubBackend{})

	err := d.Register(descriptor("rag"), stubAgent("rag", &stubBackend{}))
	assert.ErrorIs(t, err, agent.ErrDuplicateAgent)

	err = d.Register(agent.Descriptor{Type: "nameless"}, stubAgent("nameless", &stubBackend{}))
	assert.ErrorIs(t, err, agent.ErrInvalidInput)

	err = d.Register(descriptor("nil"), nil)
	assert.ErrorIs(t, err, agent.ErrInvalidInput)

	agents := d.ListAgents()
	require.Len(t, agents, 2)
	assert.Equal(t, agent.Type("rag"), agents[0].Type)
	assert.True(t, agents[0].Available)
	assert.Equal(t, agent.Type("mcp"), agents[1].Type)
	assert.False(t, agents[1].Available)
	assert.Equal(t, []string{"FIRECRAWL_API_KEY"}, agents[1].Missing)
}

func TestDispatchRAGExample(t *testing.T) {
	b := &stubBackend{text: "async declara, await espera", sources: []string{"doc1"}, conf: 0.82}
	d := newTestDispatcher(t, b)

	res := d.Dispatch(context.Background(), "rag", "Qual a diferença entre async e await?", "s1", nil)
	require.Equal(t, agent.StatusSuccess, res.Status)
	assert.Equal(t, agent.Type("rag"), res.AgentType)
	assert.Equal(t, "s1", res.SessionID)
	assert.Equal(t, "async declara, await espera", res.Response)
	citations, ok := res.Payload.(*agent.Citations)
	require.True(t, ok)
	require.Len(t, citations.Sources, 1)
	assert.Equal(t, "doc1", citations.Sources[0].ID)
	assert.Equal(t, 0.82, *citations.Confidence)

	turns := d.Memory().Context("s1", "rag")
	require.Len(t, turns, 2)
	assert.Equal(t, memory.RoleUser, turns[0].Role)
	assert.Equal(t, "Qual a diferença entre async e await?", turns[0].Content)
	assert.Equal(t, memory.RoleAssistant, turns[1].Role)
	assert.Equal(t, "async declara, await espera", turns[1].Content)
	assert.Equal(t, res.Payload, turns[1].Metadata)
}

func TestDispatchPassesHistory(t *testing.T) {
	var seen []memory.Turn
	var conv string
	d := New(memory.NewStore(10), credMap{})
	require.NoError(t, d.Register(descriptor("externo"), agent.Bind("externo", func(ctx context.Context, req agent.Request) (*agent.Reply, error) {
		seen = req.History
		conv = req.ConversationID
		return &agent.Reply{Text: "ok"}, nil
	})))

	d.Dispatch(context.Background(), "externo", "first", "s1", nil)
	assert.Empty(t, seen)
	assert.Equal(t, "s1.0", conv)

	d.Dispatch(context.Background(), "externo", "second", "s1", nil)
	require.Len(t, seen, 2)
	assert.Equal(t, "first", seen[0].Content)

	d.Memory().Reset("s1", "externo")
	d.Dispatch(context.Background(), "externo", "third", "s1", nil)
	assert.Empty(t, seen)
	assert.Equal(t, "s1.1", conv)
}

func TestDispatchErrors(t *testing.T) {
	tests := []struct {
		name      string
		agentType agent.Type
		message   string
		wantCode  string
	}{
		{"unknown agent", "nonexistent", "hello", agent.CodeUnknownAgent},
		{"unavailable agent", "mcp", "hello", agent.CodeAgentUnavailable},
		{"empty message", "rag", "", agent.CodeInvalidInput},
		{"blank message", "rag", "  \n\t", agent.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &stubBackend{}
			d := newTestDispatcher(t, b)
			res := d.Dispatch(context.Background(), tt.agentType, tt.message, "s1", nil)
			assert.Equal(t, agent.StatusError, res.Status)
			assert.Equal(t, tt.agentType, res.AgentType)
			assert.Equal(t, tt.wantCode, res.ErrorCode)
			assert.Equal(t, 0, b.calls)
			assert.Empty(t, d.Memory().Context("s1", string(tt.agentType)))
		})
	}
}

func TestDispatchRetry(t *testing.T) {
	unavailable := &httpclient.HTTPError{StatusCode: http.StatusServiceUnavailable, Message: "down"}

	b := &stubBackend{replies: []error{unavailable, unavailable}}
	d := newTestDispatcher(t, b)
	res := d.Dispatch(context.Background(), "rag", "q", "s1", nil)
	assert.Equal(t, agent.StatusError, res.Status)
	assert.Equal(t, agent.CodeBackendError, res.ErrorCode)
	assert.Equal(t, 2, b.calls)
	assert.Empty(t, d.Memory().Context("s1", "rag"))

	b = &stubBackend{replies: []error{unavailable}, text: "ok"}
	d = newTestDispatcher(t, b)
	res = d.Dispatch(context.Background(), "rag", "q", "s1", nil)
	assert.Equal(t, agent.StatusSuccess, res.Status)
	assert.Equal(t, 2, b.calls)
	assert.Len(t, d.Memory().Context("s1", "rag"), 2)

	b = &stubBackend{replies: []error{&httpclient.HTTPError{StatusCode: http.StatusUnauthorized}}}
	d = newTestDispatcher(t, b)
	res = d.Dispatch(context.Background(), "rag", "q", "s1", nil)
	assert.Equal(t, agent.StatusError, res.Status)
	assert.Equal(t, 1, b.calls)
}

func TestDispatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &stubBackend{}
	d := New(memory.NewStore(10), credMap{})
	policy := orchestrator.Policy{Timeout: time.Second, Attempts: 2, Delay: time.Millisecond}
	require.NoError(t, d.Register(descriptor("rag"), agent.Bind("rag", func(ctx context.Context, req agent.Request) (*agent.Reply, error) {
		err := policy.Call(ctx, "stub", func(ctx context.Context) error {
			b.calls++
			cancel()
			return orchestrator.Transient(fmt.Errorf("read: %w", ctx.Err()))
		})
		return nil, err
	})))

	res := d.Dispatch(ctx, "rag", "q", "s1", nil)
	assert.Equal(t, agent.StatusError, res.Status)
	assert.Equal(t, 1, b.calls)
}

func TestDispatchRecoversPanics(t *testing.T) {
	d := New(memory.NewStore(10), credMap{})
	require.NoError(t, d.Register(descriptor("mermaid"), agent.Bind("mermaid", func(ctx context.Context, req agent.Request) (*agent.Reply, error) {
		panic("nil diagram")
	})))
	res := d.Dispatch(context.Background(), "mermaid", "draw", "s1", nil)
	assert.Equal(t, agent.StatusError, res.Status)
	assert.Equal(t, agent.Type("mermaid"), res.AgentType)
}

func TestDispatchNewSession(t *testing.T) {
	d := newTestDispatcher(t, &stubBackend{text: "ok"})
	res := d.Dispatch(context.Background(), "rag", "q", "", nil)
	require.True(t, res.IsSuccess())
	assert.NotEmpty(t, res.SessionID)
	assert.Len(t, d.Memory().Context(res.SessionID, "rag"), 2)
}

func TestDispatchFailuresKeepNoSession(t *testing.T) {
	d := newTestDispatcher(t, &stubBackend{text: "ok"})
	ctx := context.Background()

	assert.Equal(t, agent.StatusError, d.Dispatch(ctx, "nope", "q", "", nil).Status)
	assert.Equal(t, agent.StatusError, d.Dispatch(ctx, "nope", "q", "fresh", nil).Status)
	assert.Equal(t, agent.StatusError, d.Dispatch(ctx, "mcp", "q", "", nil).Status)
	assert.Equal(t, agent.StatusError, d.Dispatch(ctx, "rag", "   ", "", nil).Status)
	assert.Equal(t, 0, d.Memory().Stats().Sessions)

	require.True(t, d.Dispatch(ctx, "rag", "q", "kept", nil).IsSuccess())
	assert.Equal(t, 1, d.Memory().Stats().Sessions)
}

func TestLookup(t *testing.T) {
	d := newTestDispatcher(t, &stubBackend{})
	a, err := d.Lookup("rag")
	require.NoError(t, err)
	assert.NotNil(t, a)

	_, err = d.Lookup("mcp")
	assert.ErrorIs(t, err, agent.ErrAgentUnavailable)
	_, err = d.Lookup("nope")
	assert.ErrorIs(t, err, agent.ErrUnknownAgent)
}

func TestHealth(t *testing.T) {
	d := newTestDispatcher(t, &stubBackend{})
	assert.Equal(t, HealthReport{
		Overall:  Degraded,
		PerAgent: map[string]bool{"rag": true, "mcp": false},
	}, d.Health())

	d = New(memory.NewStore(10), credMap{"OPENAI_API_KEY": true})
	require.NoError(t, d.Register(descriptor("mermaid", "OPENAI_API_KEY"), stubAgent("mermaid", &stubBackend{})))
	assert.Equal(t, Healthy, d.Health().Overall)
}
