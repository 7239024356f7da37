package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/bgs-goals/internal/capture"
	"github.com/ajitpratap0/bgs-goals/internal/eddn"
	"github.com/ajitpratap0/bgs-goals/internal/ingest"
	"github.com/ajitpratap0/bgs-goals/internal/interest"
	"github.com/ajitpratap0/bgs-goals/internal/store"
)

func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Subscribe to the EDDN relay and store the facts guilds care about",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("listen: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			return runListener(ctx, st, newCaches(st, logger), logger)
		},
	}
}

// runListener consumes the feed until ctx is cancelled.
func runListener(ctx context.Context, st store.Store, caches *interest.Caches, logger *slog.Logger) error {
	sub, err := eddn.DialZMQ(ctx, cfg.EDDN.Endpoint, cfg.EDDN.ReceiveTimeout, logger)
	if err != nil {
		return fmt.Errorf("listen: connecting to relay: %w", err)
	}
	defer func() { _ = sub.Close() }()

	processors := []capture.Processor{
		capture.NewBGSProcessor(capture.NewBGSExtractor(caches), st, logger),
		capture.NewCarrierProcessor(caches, st, logger),
	}

	loop := ingest.New(sub, eddn.NewGate(cfg.EDDN.MinVersion()), processors, cfg.EDDN.Workers, logger)
	if err := loop.Run(ctx); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}
