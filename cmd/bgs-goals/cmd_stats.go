package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show fact store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("stats: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			stats, err := st.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: fetching statistics: %w", err)
			}

			fmt.Printf("Star systems:    %d\n", stats.StarSystems)
			fmt.Printf("Minor factions:  %d\n", stats.MinorFactions)
			fmt.Printf("Presences:       %d\n", stats.Presences)
			fmt.Printf("Conflicts:       %d\n", stats.Conflicts)
			fmt.Printf("Guilds:          %d\n", stats.Guilds)
			fmt.Printf("Goals:           %d\n", stats.Goals)
			fmt.Printf("Fleet carriers:  %d\n", stats.Carriers)
			return nil
		},
	}
}
