package core

import (
	"encoding/json"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeToolCall(t *testing.T) {
	tests := []struct {
		name      string
		arguments string
		want      map[string]any
		wantErr   bool
	}{
		{name: "object", arguments: `{"a":2,"b":"x"}`, want: map[string]any{"a": float64(2), "b": "x"}},
		{name: "empty", arguments: "", want: map[string]any{}},
		{name: "null", arguments: "null", want: map[string]any{}},
		{name: "not an object", arguments: `[1,2]`, wantErr: true},
		{name: "garbage", arguments: `{"a":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeToolCall(ToolCall{ID: "id", Name: "tool", Arguments: tt.arguments})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to parse arguments for tool tool")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Arguments)
			assert.Equal(t, "id", req.ID)
		})
	}
}

func TestToolOutcomeContent(t *testing.T) {
	ok := SucceededOutcome("1", "add", "9")
	assert.Equal(t, "9", ok.Content())
	assert.False(t, ok.Failed())

	failed := FailedOutcome("2", "add", `Unknown tool: "add"`)
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(failed.Content()), &body))
	assert.Equal(t, map[string]string{"status": "error", "message": `Unknown tool: "add"`}, body)

	msg := NewToolResultContent(failed)
	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "2", msg.ToolCallID)
	assert.Equal(t, "add", msg.Name)
}

func TestToolDescriptorFromSchema(t *testing.T) {
	d, err := toolDescriptorFromSchema("ep", "noargs", "", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(d.InputSchema))
	assert.Equal(t, "ep", d.Endpoint)

	d, err = toolDescriptorFromSchema("ep", "add", "Add", map[string]any{
		"type":     "object",
		"required": []string{"a"},
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
		},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","required":["a"],"properties":{"a":{"type":"number"}}}`, string(d.InputSchema))

	_, err = toolDescriptorFromSchema("ep", " ", "", nil)
	assert.EqualError(t, err, "malformed tool list: tool without a name")
}

func TestCompileInputSchemaValidates(t *testing.T) {
	schema, err := compileInputSchema(json.RawMessage(`{"type":"object","required":["a"],"properties":{"a":{"type":"number"}}}`))
	require.NoError(t, err)

	endpoint := &Endpoint{validators: map[string]*jsonschema.Schema{"add": schema}}
	assert.NoError(t, endpoint.validate("add", map[string]any{"a": 1}))
	assert.Error(t, endpoint.validate("add", map[string]any{"a": "one"}))
	assert.Error(t, endpoint.validate("add", map[string]any{}))
	assert.NoError(t, endpoint.validate("unvalidated", map[string]any{"anything": true}))
}

func TestStatsAdd(t *testing.T) {
	total := Stats{InputTokenCount: 1, OutputTokenCount: 2, TotalTokenCount: 3}.Add(Stats{InputTokenCount: 4, OutputTokenCount: 5, TotalTokenCount: 9})
	assert.Equal(t, Stats{InputTokenCount: 5, OutputTokenCount: 7, TotalTokenCount: 12}, total)
}
