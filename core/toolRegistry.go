package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	ClientName    = "mcp-chat"
	ClientVersion = "0.1.0"

	DefaultConnectTimeout = 5 * time.Second
	DefaultCallTimeout    = 30 * time.Second
)

// ToolRegistry owns the endpoint connections, the aggregated tool catalog and
// the route table from tool name to owning endpoint.
//
// The endpoint table and routes change only in Connect and DisconnectAll;
// Dispatch only reads them. Connects are serialized so two endpoints never race
// to register the same tool name.
type ToolRegistry struct {
	connectMu sync.Mutex
	mu        sync.RWMutex

	client    *mcp.Client
	dialer    Dialer
	endpoints map[string]*Endpoint
	order     []string
	routes    map[string]string
	catalog   []ToolDescriptor

	connectTimeout time.Duration
	callTimeout    time.Duration
	metrics        *Metrics
}

type RegistryOption func(*ToolRegistry)

func WithDialer(dialer Dialer) RegistryOption {
	return func(tr *ToolRegistry) {
		tr.dialer = dialer
	}
}

func WithConnectTimeout(timeout time.Duration) RegistryOption {
	return func(tr *ToolRegistry) {
		if timeout > 0 {
			tr.connectTimeout = timeout
		}
	}
}

func WithCallTimeout(timeout time.Duration) RegistryOption {
	return func(tr *ToolRegistry) {
		if timeout > 0 {
			tr.callTimeout = timeout
		}
	}
}

func WithRegistryMetrics(metrics *Metrics) RegistryOption {
	return func(tr *ToolRegistry) {
		tr.metrics = metrics
	}
}

func NewToolRegistry(opts ...RegistryOption) *ToolRegistry {
	tr := &ToolRegistry{
		client:         mcp.NewClient(&mcp.Implementation{Name: ClientName, Version: ClientVersion}, nil),
		dialer:         TransportDialer{},
		endpoints:      make(map[string]*Endpoint),
		routes:         make(map[string]string),
		connectTimeout: DefaultConnectTimeout,
		callTimeout:    DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// Connect dials address, performs the MCP handshake, lists the endpoint's tools
// and merges them into the catalog. On failure nothing of the endpoint is kept
// and a *ConnectError is returned. Connecting an id that is already present
// replaces the old connection.
func (tr *ToolRegistry) Connect(ctx context.Context, id, address string) error {
	tr.connectMu.Lock()
	defer tr.connectMu.Unlock()

	log.Info().Str("endpoint", id).Str("address", address).Msg("Connecting to MCP server")

	endpoint, err := tr.open(ctx, id, address)
	tr.metrics.observeConnect(id, err)
	if err != nil {
		log.Error().Err(err).Str("endpoint", id).Str("address", address).Msg("Failed to connect to MCP server")
		return &ConnectError{Endpoint: id, Address: address, Cause: err}
	}

	tr.mu.Lock()
	previous := tr.endpoints[id]
	tr.endpoints[id] = endpoint
	tr.order = append(removeID(tr.order, id), id)
	shadowed := tr.rebuild()
	tr.mu.Unlock()

	if previous != nil {
		if err := previous.close(); err != nil {
			log.Warn().Err(err).Str("endpoint", id).Msg("Failed to close replaced connection")
		}
	}
	for tool, loser := range shadowed {
		log.Warn().
			Str("tool", tool).
			Str("endpoint", id).
			Str("shadowed_endpoint", loser).
			Msg("Tool name already registered, last connected endpoint wins")
	}

	log.Info().
		Str("endpoint", id).
		Strs("tools", endpoint.info().Tools).
		Msg("Connected to MCP server")
	return nil
}

// open connects one endpoint. The transport and session live on a context of
// their own, detached from ctx and the connect deadline; any failure cancels
// it, which aborts a pending handshake and kills a stdio child.
func (tr *ToolRegistry) open(ctx context.Context, id, address string) (_ *Endpoint, err error) {
	lifetime, release := context.WithCancel(context.WithoutCancel(ctx))
	defer func() {
		if err != nil {
			release()
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, tr.connectTimeout)
	defer cancel()

	transport, err := tr.dialer.Dial(lifetime, address)
	if err != nil {
		return nil, err
	}
	session, err := tr.handshake(ctx, lifetime, transport)
	if err != nil {
		return nil, err
	}

	tools, err := listTools(ctx, session)
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("list tools: %w", err)
	}

	descriptors := make([]ToolDescriptor, 0, len(tools))
	validators := make(map[string]*jsonschema.Schema, len(tools))
	for _, tool := range tools {
		descriptor, err := toolDescriptorFromSchema(id, tool.Name, tool.Description, tool.InputSchema)
		if err != nil {
			_ = session.Close()
			return nil, err
		}
		schema, err := compileInputSchema(descriptor.InputSchema)
		if err != nil {
			log.Warn().Err(err).Str("endpoint", id).Str("tool", tool.Name).Msg("Input schema not compilable, arguments will not be validated")
		} else {
			validators[tool.Name] = schema
		}
		descriptors = append(descriptors, descriptor)
	}
	return newEndpoint(id, address, session, release, descriptors, validators), nil
}

// handshake runs the MCP initialize exchange on lifetime and gives up when ctx
// is done. The caller cancels lifetime on failure, so a handshake still in
// flight returns and its session is closed.
func (tr *ToolRegistry) handshake(ctx, lifetime context.Context, transport mcp.Transport) (*mcp.ClientSession, error) {
	type result struct {
		session *mcp.ClientSession
		err     error
	}
	done := make(chan result, 1)
	go func() {
		session, err := tr.client.Connect(lifetime, transport, nil)
		done <- result{session: session, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("handshake: %w", r.err)
		}
		return r.session, nil
	case <-ctx.Done():
		go func() {
			if r := <-done; r.session != nil {
				_ = r.session.Close()
			}
		}()
		return nil, fmt.Errorf("handshake: %w", ctx.Err())
	}
}

func listTools(ctx context.Context, session *mcp.ClientSession) ([]*mcp.Tool, error) {
	var tools []*mcp.Tool
	params := &mcp.ListToolsParams{}
	for {
		res, err := session.ListTools(ctx, params)
		if err != nil {
			return nil, err
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			return tools, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
}

// rebuild recomputes routes and catalog from the endpoints in connection order.
// It returns the tool names whose previous owner was shadowed. Callers hold mu.
func (tr *ToolRegistry) rebuild() map[string]string {
	routes := make(map[string]string)
	shadowed := make(map[string]string)
	for _, id := range tr.order {
		for _, tool := range tr.endpoints[id].tools {
			if owner, ok := routes[tool.Name]; ok && owner != id {
				shadowed[tool.Name] = owner
			}
			routes[tool.Name] = id
		}
	}

	catalog := make([]ToolDescriptor, 0, len(routes))
	seen := make(map[string]bool, len(routes))
	for _, id := range tr.order {
		for _, tool := range tr.endpoints[id].tools {
			if routes[tool.Name] != id || seen[tool.Name] {
				continue
			}
			seen[tool.Name] = true
			catalog = append(catalog, tool)
		}
	}

	tr.routes = routes
	tr.catalog = catalog
	return shadowed
}

// Catalog returns a snapshot of the aggregated tools. Later connects never
// mutate a slice that was already returned.
func (tr *ToolRegistry) Catalog() []ToolDescriptor {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	list := make([]ToolDescriptor, len(tr.catalog))
	copy(list, tr.catalog)
	return list
}

// Route reports the endpoint that owns a tool name.
func (tr *ToolRegistry) Route(name string) (string, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	id, ok := tr.routes[name]
	return id, ok
}

func (tr *ToolRegistry) Endpoints() []EndpointInfo {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	list := make([]EndpointInfo, 0, len(tr.order))
	for _, id := range tr.order {
		list = append(list, tr.endpoints[id].info())
	}
	return list
}

// Dispatch forwards a request to the endpoint owning the tool and waits for the
// single reply. It never fails: every problem becomes an error outcome.
func (tr *ToolRegistry) Dispatch(ctx context.Context, req ToolRequest) ToolOutcome {
	start := time.Now()
	payload, endpointID, err := tr.call(ctx, req)

	var outcome ToolOutcome
	if err != nil {
		outcome = FailedOutcome(req.ID, req.Name, err.Error())
		log.Error().Err(err).Str("tool", req.Name).Str("endpoint", endpointID).Msg("Tool call failed")
	} else {
		outcome = SucceededOutcome(req.ID, req.Name, payload)
		log.Info().Str("tool", req.Name).Str("endpoint", endpointID).Dur("duration", time.Since(start)).Msg("Tool call succeeded")
	}
	tr.metrics.observeDispatch(req.Name, endpointID, outcome.Status, time.Since(start))
	return outcome
}

func (tr *ToolRegistry) call(ctx context.Context, req ToolRequest) (string, string, error) {
	tr.mu.RLock()
	id, ok := tr.routes[req.Name]
	endpoint := tr.endpoints[id]
	tr.mu.RUnlock()

	if !ok {
		return "", "", newDispatchError("Unknown tool: %s", req.Name)
	}
	if endpoint == nil || !endpoint.Live() {
		return "", id, newDispatchError("Server %s is not connected", id)
	}
	if err := endpoint.validate(req.Name, req.Arguments); err != nil {
		return "", id, newDispatchError("Invalid arguments for tool %s: %v", req.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, tr.callTimeout)
	defer cancel()
	result, err := endpoint.call(ctx, req.Name, req.Arguments)
	if err != nil {
		return "", id, newDispatchError("Error calling tool %s on server %s: %v", req.Name, id, err)
	}
	text := resultText(result)
	if result.IsError {
		return "", id, newDispatchError("Tool %s on server %s reported an error: %s", req.Name, id, text)
	}
	return text, id, nil
}

// DisconnectAll closes every endpoint and empties the registry. Close failures
// are logged and otherwise ignored.
func (tr *ToolRegistry) DisconnectAll() {
	tr.connectMu.Lock()
	defer tr.connectMu.Unlock()

	tr.mu.Lock()
	endpoints, order := tr.endpoints, tr.order
	tr.endpoints = make(map[string]*Endpoint)
	tr.order = nil
	tr.routes = make(map[string]string)
	tr.catalog = nil
	tr.mu.Unlock()

	for _, id := range order {
		if err := endpoints[id].close(); err != nil {
			log.Warn().Err(err).Str("endpoint", id).Msg("Failed to close MCP session")
			continue
		}
		log.Debug().Str("endpoint", id).Msg("Disconnected from MCP server")
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
