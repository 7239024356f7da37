package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func todoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "todo [guild-id]",
		Short: "Print a guild's to-do list as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("todo: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			list, err := newGuildService(st, nil, logger).GetTodoList(ctx, args[0])
			if err != nil {
				return fmt.Errorf("todo: %w", err)
			}
			return printJSON(list)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
