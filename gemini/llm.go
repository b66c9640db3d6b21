package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"polycode/mcp-chat/core"
)

const (
	DefaultModel = "gemini-2.0-flash"

	roleUser  = "user"
	roleModel = "model"
)

type Gemini struct {
	ModelName string
	client    *genai.Client
}

func NewGemini(ctx context.Context, apiKey string, modelName string) (*Gemini, error) {
	return NewGeminiWithConfig(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, modelName)
}

// NewGeminiWithConfig builds the backend from a full client config, e.g. to
// point HTTPOptions.BaseURL at a proxy.
func NewGeminiWithConfig(ctx context.Context, config *genai.ClientConfig, modelName string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	return &Gemini{
		ModelName: modelName,
		client:    client,
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, input core.LLMInput) (core.LLMOutput, error) {
	contents, systemContext := toContents(input.Messages)

	config := &genai.GenerateContentConfig{}
	if systemContext != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemContext}}}
	}
	if len(input.Tools) > 0 {
		declarations, err := toFunctionDeclarations(input.Tools)
		if err != nil {
			return core.LLMOutput{}, err
		}
		mode := genai.FunctionCallingConfigModeAuto
		if input.ToolChoice == core.ToolChoiceNone {
			mode = genai.FunctionCallingConfigModeNone
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.ModelName, contents, config)
	if err != nil {
		return core.LLMOutput{}, err
	}
	if len(result.Candidates) == 0 {
		return core.LLMOutput{}, core.ErrNoModelResponse
	}

	out := core.ChatMessage{Role: core.RoleAssistant, Content: result.Text()}
	for _, call := range result.FunctionCalls() {
		args, err := json.Marshal(call.Args)
		if err != nil {
			return core.LLMOutput{}, fmt.Errorf("encode arguments of %s: %w", call.Name, err)
		}
		id := call.ID
		if id == "" {
			id = uuid.NewString()
		}
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{ID: id, Name: call.Name, Arguments: string(args)})
	}

	var stats core.Stats
	if result.UsageMetadata != nil {
		stats = core.Stats{
			InputTokenCount:  result.UsageMetadata.PromptTokenCount,
			OutputTokenCount: result.UsageMetadata.CandidatesTokenCount,
			TotalTokenCount:  result.UsageMetadata.TotalTokenCount,
		}
	}
	return core.LLMOutput{Message: out, Stats: stats}, nil
}

// toContents maps the transcript onto Gemini turns. System messages become the
// system instruction; consecutive tool results share one user turn.
func toContents(history []core.ChatMessage) ([]*genai.Content, string) {
	var contents []*genai.Content
	systemContext := ""
	for _, content := range history {
		switch content.Role {
		case core.RoleSystem:
			systemContext = content.Content
		case core.RoleUser:
			contents = append(contents, &genai.Content{Role: roleUser, Parts: []*genai.Part{{Text: content.Content}}})
		case core.RoleAssistant:
			var parts []*genai.Part
			if content.Content != "" {
				parts = append(parts, &genai.Part{Text: content.Content})
			}
			for _, tc := range content.ToolCalls {
				// undecodable arguments were already answered with an error result
				req, _ := core.DecodeToolCall(tc)
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: req.Arguments}})
			}
			contents = append(contents, &genai.Content{Role: roleModel, Parts: parts})
		case core.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       content.ToolCallID,
				Name:     content.Name,
				Response: map[string]any{"output": content.Content},
			}}
			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: roleUser, Parts: []*genai.Part{part}})
		}
	}
	return contents, systemContext
}

func isFunctionResponseTurn(content *genai.Content) bool {
	if content.Role != roleUser || len(content.Parts) == 0 {
		return false
	}
	for _, part := range content.Parts {
		if part.FunctionResponse == nil {
			return false
		}
	}
	return true
}
