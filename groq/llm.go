package groq

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"polycode/mcp-chat/core"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

// Groq talks to any OpenAI-compatible chat completion API: Groq by default,
// Ollama or OpenAI with a different base URL.
type Groq struct {
	ModelName string
	client    *openai.Client
}

func NewGroq(apiKey string, baseURL string, modelName string) *Groq {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Groq{
		ModelName: modelName,
		client:    openai.NewClientWithConfig(config),
	}
}

func (g *Groq) Generate(ctx context.Context, input core.LLMInput) (core.LLMOutput, error) {
	req := openai.ChatCompletionRequest{
		Model:    g.ModelName,
		Messages: toMessages(input.Messages),
	}
	// tool_choice without tools is rejected by the API
	if len(input.Tools) > 0 {
		req.Tools = toTools(input.Tools)
		req.ToolChoice = string(input.ToolChoice)
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return core.LLMOutput{}, err
	}
	if len(resp.Choices) == 0 {
		return core.LLMOutput{}, core.ErrNoModelResponse
	}

	message := resp.Choices[0].Message
	out := core.ChatMessage{
		Role:    core.RoleAssistant,
		Content: message.Content,
	}
	for _, tc := range message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return core.LLMOutput{Message: out, Stats: core.Stats{
		InputTokenCount:  int32(resp.Usage.PromptTokens),
		OutputTokenCount: int32(resp.Usage.CompletionTokens),
		TotalTokenCount:  int32(resp.Usage.TotalTokens),
	}}, nil
}

func toMessages(history []core.ChatMessage) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, content := range history {
		switch content.Role {
		case core.RoleSystem:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: content.Content})
		case core.RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content.Content})
		case core.RoleAssistant:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content.Content}
			for _, tc := range content.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			messages = append(messages, msg)
		case core.RoleTool:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content.Content,
				ToolCallID: content.ToolCallID,
			})
		}
	}
	return messages
}

func toTools(descriptors []core.ToolDescriptor) []openai.Tool {
	tools := make([]openai.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.InputSchema,
			},
		})
	}
	return tools
}
