package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/bgs-goals/internal/lifecycle"
)

func pruneCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Run lifecycle management (expire old fleet carrier sightings)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("prune: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			lm := lifecycle.NewManager(st, cfg.Lifecycle.CarrierRetention(), logger)
			report, err := lm.Run(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("prune: running lifecycle: %w", err)
			}

			fmt.Printf("Lifecycle report:\n")
			fmt.Printf("  Carriers pruned: %d\n", report.CarriersPruned)
			if dryRun {
				fmt.Println("  (dry run, no changes applied)")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview changes without applying")
	return cmd
}
