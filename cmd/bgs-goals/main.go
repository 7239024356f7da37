package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/bgs-goals/internal/config"
	"github.com/ajitpratap0/bgs-goals/internal/guild"
	"github.com/ajitpratap0/bgs-goals/internal/interest"
	"github.com/ajitpratap0/bgs-goals/internal/store"
	"github.com/ajitpratap0/bgs-goals/internal/todo"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "bgs-goals",
		Short: "bgs-goals: background simulation goal tracking for Discord guilds",
		Long:  "bgs-goals listens to the Elite Dangerous Data Network, keeps the faction facts guilds care about and turns each guild's goals into a to-do list.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		listenCmd(),
		serveCmd(),
		mcpCmd(),
		todoCmd(),
		goalsCmd(),
		factionCmd(),
		statsCmd(),
		pruneCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newStore opens the SQLite fact store and applies the schema.
func newStore(ctx context.Context, logger *slog.Logger) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path, logger)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return st, nil
}

func newCaches(st store.Store, logger *slog.Logger) *interest.Caches {
	return interest.New(st, cfg.Cache.TTL, nil, logger)
}

// newGuildService builds the guild API. caches may be nil when no listener shares the process.
func newGuildService(st store.Store, caches *interest.Caches, logger *slog.Logger) *guild.Service {
	var validator guild.NameValidator
	if cfg.Guild.RequireKnownNames {
		validator = guild.NewStoreValidator(st)
	}
	var inv guild.Invalidator
	if caches != nil {
		inv = caches
	}
	return guild.NewService(st, todo.NewGenerator(st, logger), validator, inv, logger)
}
