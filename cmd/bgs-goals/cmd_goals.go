package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/bgs-goals/internal/guild"
	"github.com/ajitpratap0/bgs-goals/internal/models"
)

func goalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Manage a guild's explicit goals",
	}
	cmd.AddCommand(goalsAddCmd(), goalsRemoveCmd(), goalsListCmd())
	return cmd
}

func goalsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [guild-id] [star-system] [minor-faction] [goal]",
		Short: "Set a goal (control, expand, maintain, retreat, ignore) on a presence",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("goals add: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			added, err := newGuildService(st, nil, logger).AddGoals(ctx, args[0], []guild.GoalInput{
				{StarSystem: args[1], MinorFaction: args[2], Goal: args[3]},
			})
			if err != nil {
				return fmt.Errorf("goals add: %w", err)
			}

			for _, g := range added {
				fmt.Printf("Set %s on %s in %s\n", g.Goal, g.MinorFaction, g.StarSystem)
			}
			return nil
		},
	}
}

func goalsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [guild-id] [star-system] [minor-faction]",
		Short: "Clear the goal on a presence",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("goals remove: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			key := models.PresenceKey{StarSystem: args[1], MinorFaction: args[2]}
			if err := newGuildService(st, nil, logger).RemoveGoals(ctx, args[0], []models.PresenceKey{key}); err != nil {
				return fmt.Errorf("goals remove: %w", err)
			}

			fmt.Printf("Removed goal on %s in %s\n", key.MinorFaction, key.StarSystem)
			return nil
		},
	}
}

func goalsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [guild-id]",
		Short: "List a guild's explicit goals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("goals list: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			goals, err := newGuildService(st, nil, logger).ListGoals(ctx, args[0])
			if err != nil {
				return fmt.Errorf("goals list: %w", err)
			}

			for i, g := range goals {
				fmt.Printf("[%d] %-10s %s in %s\n", i+1, g.Goal, g.MinorFaction, g.StarSystem)
			}
			if len(goals) == 0 {
				fmt.Println("No goals set.")
			}
			return nil
		},
	}
}
