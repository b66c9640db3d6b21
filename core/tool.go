package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// ToolDescriptor is a tool as advertised by an endpoint. InputSchema is kept
// opaque and handed to the model untouched.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	Endpoint    string          `json:"endpoint"`
}

// ToolCall is a tool invocation as emitted by the model, arguments still encoded.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolRequest is a decoded ToolCall ready for dispatch.
type ToolRequest struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// DecodeToolCall parses the model's argument text. Empty or null arguments decode
// to an empty object; anything that is not a JSON object is an error.
func DecodeToolCall(call ToolCall) (ToolRequest, error) {
	args := map[string]any{}
	raw := strings.TrimSpace(call.Arguments)
	if raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return ToolRequest{}, fmt.Errorf("failed to parse arguments for tool %s: %w", call.Name, err)
		}
	}
	return ToolRequest{
		ID:        call.ID,
		Name:      call.Name,
		Arguments: args,
	}, nil
}

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
)

type ToolOutcome struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Status  OutcomeStatus `json:"status"`
	Payload string        `json:"payload"`
}

func SucceededOutcome(id, name, payload string) ToolOutcome {
	return ToolOutcome{ID: id, Name: name, Status: OutcomeSuccess, Payload: payload}
}

func FailedOutcome(id, name, message string) ToolOutcome {
	return ToolOutcome{ID: id, Name: name, Status: OutcomeError, Payload: message}
}

func (o ToolOutcome) Failed() bool {
	return o.Status == OutcomeError
}

// Content renders the outcome as tool message text: the raw payload on success,
// a {"status":"error","message":...} object on failure.
func (o ToolOutcome) Content() string {
	if !o.Failed() {
		return o.Payload
	}
	b, err := json.Marshal(struct {
		Status  OutcomeStatus `json:"status"`
		Message string        `json:"message"`
	}{Status: o.Status, Message: o.Payload})
	if err != nil {
		return o.Payload
	}
	return string(b)
}

// compileInputSchema compiles a tool's declared input schema so arguments can be
// checked before they leave the process.
func compileInputSchema(raw json.RawMessage) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func toolDescriptorFromSchema(endpoint, name, description string, schema any) (ToolDescriptor, error) {
	if strings.TrimSpace(name) == "" {
		return ToolDescriptor{}, fmt.Errorf("malformed tool list: tool without a name")
	}
	raw := emptyObjectSchema
	if schema != nil {
		b, err := json.Marshal(schema)
		if err != nil {
			return ToolDescriptor{}, fmt.Errorf("malformed input schema for tool %s: %w", name, err)
		}
		if !bytes.Equal(b, []byte("null")) {
			raw = b
		}
	}
	return ToolDescriptor{
		Name:        name,
		Description: description,
		InputSchema: raw,
		Endpoint:    endpoint,
	}, nil
}
