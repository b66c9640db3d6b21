package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycode/mcp-chat/core"
)

type echoProcessor struct {
	queries []string
}

func (e *echoProcessor) Process(_ context.Context, query string) (core.Answer, error) {
	e.queries = append(e.queries, query)
	if query == "fail" {
		return core.Answer{}, &core.ModelCallError{Round: 0, Cause: errors.New("boom")}
	}
	return core.Answer{Text: "answer to " + query}, nil
}

type staticEndpoints []core.EndpointInfo

func (s staticEndpoints) Endpoints() []core.EndpointInfo {
	return s
}

func TestREPLAnswersUntilQuit(t *testing.T) {
	processor := &echoProcessor{}
	var out bytes.Buffer
	r := &repl{
		processor: processor,
		catalog:   staticEndpoints{{ID: "math", Address: "http://localhost:8050/mcp", Live: true, Tools: []string{"add"}}},
		in:        strings.NewReader("what is 2+7\n\nservers\nfail\nstill here?\nquit\nnever read\n"),
		out:       &out,
	}

	require.NoError(t, r.run(context.Background()))

	assert.Equal(t, []string{"what is 2+7", "fail", "still here?"}, processor.queries)
	text := out.String()
	assert.Contains(t, text, "answer to what is 2+7")
	assert.Contains(t, text, "math (http://localhost:8050/mcp) [live]\n  - add\n")
	assert.Contains(t, text, "Error: model call failed in round 0: boom")
	assert.Contains(t, text, "answer to still here?")
}

func TestREPLEndsOnEOF(t *testing.T) {
	var out bytes.Buffer
	r := &repl{
		processor: &echoProcessor{},
		catalog:   staticEndpoints{},
		in:        strings.NewReader("hello"),
		out:       &out,
	}

	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "MCP chat started")
	assert.Contains(t, out.String(), "answer to hello")
}

func TestREPLStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	processor := &echoProcessor{}
	var out bytes.Buffer
	r := &repl{
		processor: processor,
		catalog:   staticEndpoints{},
		in:        strings.NewReader("\nservers\nhello\n"),
		out:       &out,
	}

	err := r.run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, processor.queries)
	assert.NotContains(t, out.String(), "No servers connected.")
	assert.NotContains(t, out.String(), "answer to hello")
}

func TestREPLInterruptedWhileWaitingForInput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in, writer := io.Pipe()
	t.Cleanup(func() { _ = writer.Close() })
	var out bytes.Buffer
	r := &repl{
		processor: &echoProcessor{},
		catalog:   staticEndpoints{},
		in:        in,
		out:       &out,
	}

	done := make(chan error, 1)
	go func() { done <- r.run(ctx) }()
	time.AfterFunc(50*time.Millisecond, cancel)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
