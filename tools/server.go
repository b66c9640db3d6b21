package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const (
	ServerName    = "mcp-chat-tools"
	ServerVersion = "0.1.0"
)

type Options struct {
	KnowledgeBasePath string
	HTTPClient        *http.Client
	Now               func() time.Time
}

// NewServer builds the bundled MCP tool server.
func NewServer(opts Options) (*mcp.Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)

	err := addTool(server, "add", "Add two numbers and return the sum",
		func(ctx context.Context, input AddInput) (any, error) {
			return Add(ctx, input)
		})
	if err != nil {
		return nil, err
	}

	err = addTool(server, "get_current_time", "Get the current time in a given time zone and format",
		func(ctx context.Context, input GetCurrentTimeInput) (any, error) {
			return GetCurrentTime(ctx, input, opts.Now())
		})
	if err != nil {
		return nil, err
	}

	err = addTool(server, "fetch_page", "Fetch a web page and return its readable text",
		func(ctx context.Context, input FetchPageInput) (any, error) {
			return FetchPage(ctx, opts.HTTPClient, input)
		})
	if err != nil {
		return nil, err
	}

	err = addTool(server, "crawl_links", "List the links found on a web page",
		func(ctx context.Context, input CrawlLinksInput) (any, error) {
			return CrawlLinks(ctx, input)
		})
	if err != nil {
		return nil, err
	}

	if opts.KnowledgeBasePath != "" {
		err = addTool(server, "knowledge_base", "Retrieve the entire knowledge base as a formatted string",
			func(ctx context.Context, _ KnowledgeBaseInput) (any, error) {
				return KnowledgeBase(ctx, opts.KnowledgeBasePath), nil
			})
		if err != nil {
			return nil, err
		}
	}
	return server, nil
}

// InputSchema reflects T into an inline JSON schema object.
func InputSchema[T any]() (json.RawMessage, error) {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := reflector.Reflect(new(T))
	schema.Version = ""
	return schema.MarshalJSON()
}

func addTool[In any](server *mcp.Server, name, description string, handler func(context.Context, In) (any, error)) error {
	schema, err := InputSchema[In]()
	if err != nil {
		return fmt.Errorf("schema for tool %s: %w", name, err)
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, input In) (*mcp.CallToolResult, any, error) {
		start := time.Now()
		out, err := handler(ctx, input)
		if err != nil {
			log.Error().Err(err).Str("tool", name).Msg("Tool failed")
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil, nil
		}
		text, err := toText(out)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("tool", name).Dur("duration", time.Since(start)).Msg("Tool call served")
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	})
	return nil
}

func toText(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ServeStdio serves the tool server over stdin/stdout until ctx is done or the
// client disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// NewHTTPHandler exposes the tool server over MCP streamable HTTP.
func NewHTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return server
	}, nil)
}
