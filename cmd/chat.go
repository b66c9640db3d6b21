package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"polycode/mcp-chat/core"
)

var chatCmd = &cobra.Command{
	Use:   "chat [id=address...]",
	Short: "Start an interactive chat session",
	Long: `Connect to the configured MCP servers and read queries from stdin.

Commands:
  quit      leave the session
  servers   list connected servers and their tools`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	s, err := newSession(ctx, cfg, args)
	if err != nil {
		return err
	}
	defer s.close()

	if len(s.registry.Endpoints()) == 0 {
		return errors.New("no MCP server could be connected; pass id=address overrides or start the configured servers")
	}

	r := &repl{
		processor: s.orchestrator,
		catalog:   s.registry,
		in:        cmd.InOrStdin(),
		out:       cmd.OutOrStdout(),
	}
	if err := r.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type queryProcessor interface {
	Process(ctx context.Context, query string) (core.Answer, error)
}

type endpointLister interface {
	Endpoints() []core.EndpointInfo
}

type repl struct {
	processor queryProcessor
	catalog   endpointLister
	in        io.Reader
	out       io.Writer
}

// run reads queries until quit, end of input or ctx is done. Cancellation is
// returned as ctx.Err().
func (r *repl) run(ctx context.Context) error {
	fmt.Fprintln(r.out, "MCP chat started. Type a query, 'servers' to list servers or 'quit' to exit.")

	lines, readErr := r.readLines(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(r.out, "\nQuery: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return ctx.Err()
		case next, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				return <-readErr
			}
			line = strings.TrimSpace(next)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "servers":
			r.printServers()
			continue
		}

		answer, err := r.processor.Process(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Query failed")
			fmt.Fprintf(r.out, "\nError: %v\n", err)
			continue
		}
		fmt.Fprintf(r.out, "\n%s\n", answer.Text)
	}
}

// readLines feeds input lines to a channel so the loop can also wait on ctx.
// The reader goroutine stays blocked in Scan until input arrives or closes.
// Exactly one value is sent on the error channel, before lines is closed.
func (r *repl) readLines(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
		readErr <- scanner.Err()
	}()
	return lines, readErr
}

func (r *repl) printServers() {
	endpoints := r.catalog.Endpoints()
	if len(endpoints) == 0 {
		fmt.Fprintln(r.out, "No servers connected.")
		return
	}
	for _, e := range endpoints {
		status := "live"
		if !e.Live {
			status = "down"
		}
		fmt.Fprintf(r.out, "%s (%s) [%s]\n", e.ID, e.Address, status)
		for _, tool := range e.Tools {
			fmt.Fprintf(r.out, "  - %s\n", tool)
		}
	}
}
