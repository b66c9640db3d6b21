package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"polycode/mcp-chat/tools"
)

var (
	toolServerTransport string
	toolServerAddr      string
	toolServerKB        string
)

var toolServerCmd = &cobra.Command{
	Use:   "toolserver",
	Short: "Run the bundled MCP tool server",
	Long: `Run the bundled MCP tool server over stdio or streamable HTTP.

Over stdio, logs go to stderr so stdout carries only protocol messages.
Over HTTP the server is mounted at /mcp.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := tools.NewServer(tools.Options{
			KnowledgeBasePath: toolServerKB,
			HTTPClient:        &http.Client{Timeout: 15 * time.Second},
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch toolServerTransport {
		case "stdio":
			return tools.ServeStdio(ctx, server)
		case "http":
			mux := http.NewServeMux()
			mux.Handle("/mcp", tools.NewHTTPHandler(server))
			return serveUntilDone(ctx, &http.Server{
				Addr:              toolServerAddr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			})
		default:
			return fmt.Errorf("unknown transport %q: want stdio or http", toolServerTransport)
		}
	},
}

func init() {
	toolServerCmd.Flags().StringVar(&toolServerTransport, "transport", "stdio", "Transport (stdio, http)")
	toolServerCmd.Flags().StringVar(&toolServerAddr, "addr", ":8050", "Listen address for the http transport")
	toolServerCmd.Flags().StringVar(&toolServerKB, "kb", "", "Path to a knowledge base JSON file")
}
