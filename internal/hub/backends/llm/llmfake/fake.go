// Package llmfake provides an in-memory llm.Client for tests.
package llmfake

import (
	"context"
	"sync"

	"github.com/fialabdata/agenthub/internal/hub/backends/llm"
)

// Fake answers chat requests from a queue of replies, or from ChatFunc when set.
// Every request is recorded.
type Fake struct {
	mu        sync.Mutex
	Replies   []Reply
	ChatFunc  func(req llm.ChatRequest) (*llm.ChatResponse, error)
	EmbedFunc func(model, input string) ([]float64, error)

	Requests []llm.ChatRequest
	Embeds   []string
}

// Reply is one queued chat outcome.
type Reply struct {
	Response *llm.ChatResponse
	Err      error
}

// Text queues a plain text reply.
func (f *Fake) Text(content string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Replies = append(f.Replies, Reply{Response: &llm.ChatResponse{Content: content, FinishReason: "stop"}})
	return f
}

// Fail queues an error.
func (f *Fake) Fail(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Replies = append(f.Replies, Reply{Err: err})
	return f
}

// Calls returns how many chat requests were made.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

func (f *Fake) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	if f.ChatFunc != nil {
		fn := f.ChatFunc
		f.mu.Unlock()
		return fn(req)
	}
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.Replies) == 0 {
		return &llm.ChatResponse{Content: "", FinishReason: "stop"}, nil
	}
	r := f.Replies[0]
	f.Replies = f.Replies[1:]
	return r.Response, r.Err
}

func (f *Fake) Embed(ctx context.Context, model, input string) ([]float64, error) {
	f.mu.Lock()
	f.Embeds = append(f.Embeds, input)
	fn := f.EmbedFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(model, input)
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

var _ llm.Client = &Fake{}
