// Package agent defines the contract every agent variant implements and the
// result it produces.
package agent

import (
	"context"
	"strings"

	"github.com/fialabdata/agenthub/internal/hub/memory"
)

// Type identifies an agent variant, e.g. "rag" or "mermaid".
type Type string

func (t Type) String() string {
	return string(t)
}

// Options are the free-form per-request options. Each agent decodes them into
// its own closed options struct with DecodeOptions.
type Options map[string]any

// Request is the input of one Handle call.
type Request struct {
	Message string
	History []memory.Turn // prior turns for this session and agent type, oldest first
	Options Options

	SessionID string
	// ConversationID changes every time the session's buffer for this agent is
	// reset. Backends that keep server-side history key on it.
	ConversationID string
}

// Agent turns a request into a Result. Handle never panics on backend failures and
// never returns them as Go errors; every failure is an error Result. Handle does
// not touch session memory.
type Agent interface {
	Handle(ctx context.Context, req Request) Result
}

// HandlerFunc adapts a function returning a reply or an error to an Agent.
type HandlerFunc func(ctx context.Context, req Request) (*Reply, error)

// Reply is the successful outcome of an agent.
type Reply struct {
	Text    string
	Payload Payload
}

// Bind returns an Agent of type t that validates the message, calls fn and
// converts its outcome to a Result.
func Bind(t Type, fn HandlerFunc) Agent {
	return &boundAgent{agentType: t, fn: fn}
}

type boundAgent struct {
	agentType Type
	fn        HandlerFunc
}

func (a *boundAgent) Handle(ctx context.Context, req Request) Result {
	if err := ValidateMessage(req.Message); err != nil {
		return Failure(a.agentType, err)
	}
	reply, err := a.fn(ctx, req)
	if err != nil {
		return Failure(a.agentType, err)
	}
	if reply == nil {
		return Failure(a.agentType, ErrInvalidReply.New("agent produced no reply"))
	}
	return Success(a.agentType, reply.Text, reply.Payload)
}

// ValidateMessage rejects messages that are empty after trimming.
func ValidateMessage(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return ErrEmptyMessage
	}
	return nil
}
