package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"polycode/mcp-chat/discovery"
)

var (
	discoverHost string
	discoverFrom int
	discoverTo   int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find MCP SSE servers on a range of local ports",
	Long: `Check http://<host>:<port>/sse for every port in the range and print each
server found as an id=address pair that can be passed to chat, query or serve.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if discoverFrom > discoverTo {
			return fmt.Errorf("invalid port range %d-%d", discoverFrom, discoverTo)
		}
		servers, err := discovery.NewScanner().Scan(cmd.Context(), discoverHost, discoverFrom, discoverTo)
		if err != nil {
			return err
		}
		if len(servers) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No MCP SSE servers found.")
			return nil
		}
		for _, s := range servers {
			fmt.Fprintln(cmd.OutOrStdout(), s.Override())
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverHost, "host", discovery.DefaultHost, "Host to scan")
	discoverCmd.Flags().IntVar(&discoverFrom, "from", discovery.DefaultFrom, "First port")
	discoverCmd.Flags().IntVar(&discoverTo, "to", discovery.DefaultTo, "Last port")
}
