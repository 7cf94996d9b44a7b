package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/structgraph/internal/orchestrator"
)

func newStatsCmd(flags *cliFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print node and edge counts of an existing graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pc, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if _, err := os.Stat(pc.GraphPath); err != nil {
				return fmt.Errorf("no graph at %s: %w", pc.GraphPath, err)
			}

			store, err := openStore(pc.GraphPath)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("read stats: %w", err)
			}
			fmt.Fprintln(stdout, orchestrator.FormatSummary(stats))
			return nil
		},
	}
}
