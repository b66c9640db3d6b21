package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const stdioPrefix = "stdio:"

// Dialer turns an endpoint address into an MCP transport. ctx is the lifetime
// of the endpoint: resources the transport owns are released once it is done.
type Dialer interface {
	Dial(ctx context.Context, address string) (mcp.Transport, error)
}

// TransportDialer understands three address forms:
//
//	http(s)://host/sse      MCP over server-sent events
//	http(s)://host/path     MCP streamable HTTP
//	stdio:command args...   MCP over a child process' stdin/stdout
type TransportDialer struct {
	HTTPClient *http.Client
}

func (d TransportDialer) Dial(ctx context.Context, address string) (mcp.Transport, error) {
	if strings.HasPrefix(address, stdioPrefix) {
		fields := strings.Fields(strings.TrimPrefix(address, stdioPrefix))
		if len(fields) == 0 {
			return nil, fmt.Errorf("empty stdio command in %q", address)
		}
		// the child is killed when the endpoint lifetime ends
		return &mcp.CommandTransport{Command: exec.CommandContext(ctx, fields[0], fields[1:]...)}, nil
	}

	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", address, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q in server address %q", u.Scheme, address)
	}
	if strings.HasSuffix(strings.TrimRight(u.Path, "/"), "/sse") {
		return &mcp.SSEClientTransport{Endpoint: address, HTTPClient: d.HTTPClient}, nil
	}
	return &mcp.StreamableClientTransport{Endpoint: address, HTTPClient: d.HTTPClient}, nil
}

// Endpoint is one connected tool server. The session is owned exclusively by
// the registry entry.
type Endpoint struct {
	ID      string
	Address string

	session    *mcp.ClientSession
	release    context.CancelFunc
	tools      []ToolDescriptor
	validators map[string]*jsonschema.Schema
	live       atomic.Bool
}

// EndpointInfo is a read-only view of an endpoint.
type EndpointInfo struct {
	ID      string   `json:"id"`
	Address string   `json:"address"`
	Live    bool     `json:"live"`
	Tools   []string `json:"tools"`
}

func newEndpoint(id, address string, session *mcp.ClientSession, release context.CancelFunc, tools []ToolDescriptor, validators map[string]*jsonschema.Schema) *Endpoint {
	endpoint := &Endpoint{
		ID:         id,
		Address:    address,
		session:    session,
		release:    release,
		tools:      tools,
		validators: validators,
	}
	endpoint.live.Store(true)
	go func() {
		_ = session.Wait()
		endpoint.live.Store(false)
	}()
	return endpoint
}

func (e *Endpoint) Live() bool {
	return e.live.Load()
}

func (e *Endpoint) info() EndpointInfo {
	names := make([]string, 0, len(e.tools))
	for _, tool := range e.tools {
		names = append(names, tool.Name)
	}
	return EndpointInfo{
		ID:      e.ID,
		Address: e.Address,
		Live:    e.Live(),
		Tools:   names,
	}
}

func (e *Endpoint) validate(name string, args map[string]any) error {
	schema := e.validators[name]
	if schema == nil {
		return nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return err
	}
	return schema.Validate(instance)
}

func (e *Endpoint) call(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	return e.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
}

func (e *Endpoint) close() error {
	e.live.Store(false)
	err := e.session.Close()
	e.release()
	return err
}

// resultText joins the text parts of a tool result. Results without text fall
// back to their structured content.
func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) == 0 && result.StructuredContent != nil {
		if b, err := json.Marshal(result.StructuredContent); err == nil {
			return string(b)
		}
	}
	return strings.Join(parts, "\n")
}
