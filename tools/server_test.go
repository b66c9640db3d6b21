package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callText(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestServerListsBundledTools(t *testing.T) {
	server, err := NewServer(Options{KnowledgeBasePath: writeFile(t, `[]`)})
	require.NoError(t, err)
	session := connect(t, server)

	res, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"add", "get_current_time", "fetch_page", "crawl_links", "knowledge_base"}, names)
}

func TestServerWithoutKnowledgeBase(t *testing.T) {
	server, err := NewServer(Options{})
	require.NoError(t, err)
	session := connect(t, server)

	res, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	for _, tool := range res.Tools {
		assert.NotEqual(t, "knowledge_base", tool.Name)
	}
}

func TestServerCallsTools(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	server, err := NewServer(Options{Now: func() time.Time { return now }})
	require.NoError(t, err)
	session := connect(t, server)

	text, isError := callText(t, session, "add", map[string]any{"a": 2, "b": 7})
	assert.False(t, isError)
	assert.Equal(t, "9", text)

	text, isError = callText(t, session, "get_current_time", map[string]any{})
	assert.False(t, isError)
	var out GetCurrentTimeOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "2024-03-01T12:30:00Z", out.CurrentTime)

	text, isError = callText(t, session, "get_current_time", map[string]any{"location": "Nowhere/Special"})
	assert.True(t, isError)
	assert.Contains(t, text, "invalid location")
}

func TestInputSchemaIsInlineObject(t *testing.T) {
	raw, err := InputSchema[AddInput]()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	assert.NotContains(t, schema, "$ref")
	assert.ElementsMatch(t, []any{"a", "b"}, schema["required"])
	properties := schema["properties"].(map[string]any)
	assert.Equal(t, "number", properties["a"].(map[string]any)["type"])
}
