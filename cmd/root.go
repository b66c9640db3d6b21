package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"polycode/mcp-chat/config"
	"polycode/mcp-chat/lib"
)

var version = "0.1.0"

// appConfig is loaded once before any subcommand runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "mcp-chat",
	Short: "Chat with a language model backed by tools from MCP servers",
	Long: `mcp-chat connects to one or more MCP servers, merges their tools into one
catalog and lets a language model call them while answering a query.

Servers are given as id=address pairs. An address is an http(s) URL
(ending in /sse for the SSE transport) or stdio:<command>.

Examples:
  mcp-chat chat
  mcp-chat chat web_search=http://localhost:8002/sse
  mcp-chat query "what time is it in Tokyo?" 'tools=stdio:mcp-chat toolserver'
  mcp-chat serve
  mcp-chat discover --from 8000 --to 8010`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyLogFlags(cmd, cfg)
		lib.InitLogger(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolServerCmd)
	rootCmd.AddCommand(discoverCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error), overrides LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (console, json), overrides LOG_FORMAT")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	appConfig = cfg
	return cfg, nil
}

// applyLogFlags lets --log-level and --log-format win over the environment.
func applyLogFlags(cmd *cobra.Command, cfg *config.Config) {
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.LogLevel = f.Value.String()
	}
	if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
		cfg.LogFormat = f.Value.String()
	}
}
