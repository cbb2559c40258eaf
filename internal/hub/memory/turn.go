// Package memory keeps the bounded conversation history of every session,
// partitioned by agent type.
package memory

import "time"

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultCapacity is the number of turns kept per session and agent type.
const DefaultCapacity = 10

// Turn is one message of a conversation. Metadata holds the structured payload of
// an assistant turn (sources, diagram, classification) when the agent produced one.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  any       `json:"metadata,omitempty"`
}

// UserTurn builds a user turn stamped with now.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// AssistantTurn builds an assistant turn stamped with now.
func AssistantTurn(content string, metadata any) Turn {
	return Turn{Role: RoleAssistant, Content: content, Timestamp: time.Now().UTC(), Metadata: metadata}
}
