package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <text> [id=address...]",
	Short: "Answer a single query and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := newSession(cmd.Context(), cfg, args[1:])
		if err != nil {
			return err
		}
		defer s.close()

		answer, err := s.orchestrator.Process(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
		return nil
	},
}
