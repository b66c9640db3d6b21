package core

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ChatMessage is one entry of a conversation transcript. Assistant messages may
// carry tool calls; tool messages carry the correlation id of the call they answer.
type ChatMessage struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

func NewContent(role Role, content string) ChatMessage {
	return ChatMessage{
		Role:    role,
		Content: content,
	}
}

// NewToolResultContent folds a dispatch outcome into a tool message.
func NewToolResultContent(outcome ToolOutcome) ChatMessage {
	return ChatMessage{
		Role:       RoleTool,
		Content:    outcome.Content(),
		ToolCallID: outcome.ID,
		Name:       outcome.Name,
	}
}

type Stats struct {
	InputTokenCount  int32 `json:"input_token_count,omitempty"`
	OutputTokenCount int32 `json:"output_token_count,omitempty"`
	TotalTokenCount  int32 `json:"total_token_count,omitempty"`
}

func (s Stats) Add(other Stats) Stats {
	return Stats{
		InputTokenCount:  s.InputTokenCount + other.InputTokenCount,
		OutputTokenCount: s.OutputTokenCount + other.OutputTokenCount,
		TotalTokenCount:  s.TotalTokenCount + other.TotalTokenCount,
	}
}

// Answer is the result of processing one user query.
type Answer struct {
	Text       string        `json:"text"`
	Rounds     int           `json:"rounds"`
	Transcript []ChatMessage `json:"transcript"`
	Stats      Stats         `json:"stats"`
}
