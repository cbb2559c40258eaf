// Package llm is the gateway's view of a chat completion and embedding provider.
// Agents build provider-neutral messages; the OpenAI implementation maps them to
// the openai-go SDK.
package llm

import (
	"context"

	"github.com/fialabdata/agenthub/internal/hub/memory"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one chat message. Images holds image URLs (or data URLs) attached to
// a user message. ToolCalls is set on assistant messages that request tools and
// ToolCallID on the tool messages answering them.
type Message struct {
	Role       Role
	Content    string
	Images     []string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON object
}

// Tool describes a function the model may call. Parameters is a JSON schema.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type ChatRequest struct {
	Model        string
	Messages     []Message
	Temperature  *float64
	MaxTokens    int
	Tools        []Tool
	JSONResponse bool // ask for a JSON object reply
}

type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// Client is implemented by OpenAIClient and by llmfake.Fake.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Embed(ctx context.Context, model, input string) ([]float64, error)
}

func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// FromHistory converts conversation memory to chat messages, oldest first.
func FromHistory(turns []memory.Turn) []Message {
	out := make([]Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case memory.RoleUser:
			out = append(out, User(t.Content))
		case memory.RoleAssistant:
			out = append(out, Assistant(t.Content))
		}
	}
	return out
}

// Temperature returns a pointer for ChatRequest.Temperature.
func Temperature(t float64) *float64 {
	return &t
}
