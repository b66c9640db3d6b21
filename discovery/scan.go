package discovery

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultHost  = "localhost"
	DefaultFrom  = 8000
	DefaultTo    = 8100
	checkTimeout = 2 * time.Second
	maxInFlight  = 16
)

// Server is an endpoint that answered like an MCP SSE server.
type Server struct {
	Name string
	Port int
	URL  string
}

// Override renders the server as an id=address argument.
func (s Server) Override() string {
	return fmt.Sprintf("%s=%s", s.Name, s.URL)
}

type Scanner struct {
	client *resty.Client
}

func NewScanner() *Scanner {
	return &Scanner{
		client: resty.New().SetTimeout(checkTimeout),
	}
}

// Scan checks http://host:port/sse for every port in [from, to] and returns the
// ports answering 200 with an event-stream, ordered by port.
func (s *Scanner) Scan(ctx context.Context, host string, from, to int) ([]Server, error) {
	if from <= 0 || to < from || to > 65535 {
		return nil, fmt.Errorf("invalid port range %d-%d", from, to)
	}

	var (
		mu    sync.Mutex
		found []Server
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for port := from; port <= to; port++ {
		g.Go(func() error {
			url := fmt.Sprintf("http://%s:%d/sse", host, port)
			if s.isSSE(gctx, url) {
				mu.Lock()
				found = append(found, Server{Name: fmt.Sprintf("server_%d", port), Port: port, URL: url})
				mu.Unlock()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Port < found[j].Port })
	return found, nil
}

func (s *Scanner) isSSE(ctx context.Context, url string) bool {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return false
	}
	if body := resp.RawBody(); body != nil {
		_ = body.Close()
	}
	ok := resp.StatusCode() == http.StatusOK &&
		strings.Contains(resp.Header().Get("Content-Type"), "text/event-stream")
	if ok {
		log.Debug().Str("url", url).Msg("Discovered MCP SSE server")
	}
	return ok
}
