package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func factionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faction",
		Short: "Manage a guild's supported minor faction",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set [guild-id] [minor-faction]",
		Short: "Set the minor faction a guild supports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("faction set: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if err := newGuildService(st, nil, logger).SetSupportedMinorFaction(ctx, args[0], args[1]); err != nil {
				return fmt.Errorf("faction set: %w", err)
			}

			fmt.Printf("Guild %s now supports %s\n", args[0], args[1])
			return nil
		},
	})
	return cmd
}
