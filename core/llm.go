package core

import "context"

type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// LLMInput is a single completion request: the full transcript, the tool catalog
// to offer and whether the model may call tools.
type LLMInput struct {
	Messages   []ChatMessage
	Tools      []ToolDescriptor
	ToolChoice ToolChoice
}

type LLMOutput struct {
	Message ChatMessage
	Stats   Stats
}

type LLM interface {
	Generate(ctx context.Context, input LLMInput) (LLMOutput, error)
}
