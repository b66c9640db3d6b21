package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"polycode/mcp-chat/core"
)

func toFunctionDeclarations(tools []core.ToolDescriptor) ([]*genai.FunctionDeclaration, error) {
	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		params, err := toSchema(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("schema of tool %s: %w", tool.Name, err)
		}
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		})
	}
	return declarations, nil
}

// toSchema converts a JSON Schema document to Gemini's OpenAPI subset. Parameter
// lists without properties yield nil, which Gemini expects for no-arg functions.
func toSchema(raw json.RawMessage) (*genai.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var node map[string]any
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	schema := convert(node)
	if schema.Type == genai.TypeObject && len(schema.Properties) == 0 {
		return nil, nil
	}
	return schema, nil
}

func convert(node map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	switch t := node["type"].(type) {
	case string:
		schema.Type = schemaType(t)
	case []any:
		for _, v := range t {
			name, _ := v.(string)
			if name == "null" {
				schema.Nullable = ptr(true)
			} else if schema.Type == "" {
				schema.Type = schemaType(name)
			}
		}
	}

	if description, ok := node["description"].(string); ok {
		schema.Description = description
	}
	if values, ok := node["enum"].([]any); ok {
		for _, v := range values {
			if s, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	if properties, ok := node["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(properties))
		for name, prop := range properties {
			if child, ok := prop.(map[string]any); ok {
				schema.Properties[name] = convert(child)
			}
		}
		if schema.Type == "" {
			schema.Type = genai.TypeObject
		}
	}
	if required, ok := node["required"].([]any); ok {
		for _, v := range required {
			if s, ok := v.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if items, ok := node["items"].(map[string]any); ok {
		schema.Items = convert(items)
	}
	if schema.Type == genai.TypeArray && schema.Items == nil {
		schema.Items = &genai.Schema{Type: genai.TypeString}
	}
	return schema
}

func schemaType(name string) genai.Type {
	switch strings.ToLower(name) {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	}
	return genai.TypeUnspecified
}

func ptr[T any](v T) *T {
	return &v
}
