package interest

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Source is the part of the store the caches are computed from.
type Source interface {
	// SupportedMinorFactions returns every guild's supported minor faction.
	SupportedMinorFactions(ctx context.Context) ([]string, error)
	// GoalStarSystems returns every star system with at least one explicit goal.
	GoalStarSystems(ctx context.Context) ([]string, error)
	// StarSystemGuilds maps star systems to the guilds interested in them.
	StarSystemGuilds(ctx context.Context) (map[string][]string, error)
}

type set map[string]struct{}

func newSet(names []string) set {
	s := make(set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Caches bundles the three interest caches. It is built once at startup and shared
// by every processor; all methods are safe for concurrent use.
type Caches struct {
	factions *Value[set]
	systems  *Value[set]
	guilds   *Value[map[string][]string]
	logger   *slog.Logger
}

// New creates the interest caches over src.
func New(src Source, ttl time.Duration, clock Clock, logger *slog.Logger) *Caches {
	return &Caches{
		factions: NewValue("supported-minor-factions", ttl, clock, func(ctx context.Context) (set, error) {
			names, err := src.SupportedMinorFactions(ctx)
			if err != nil {
				return nil, fmt.Errorf("loading supported minor factions: %w", err)
			}
			logger.Debug("refreshed supported minor factions", "count", len(names))
			return newSet(names), nil
		}),
		systems: NewValue("goal-star-systems", ttl, clock, func(ctx context.Context) (set, error) {
			names, err := src.GoalStarSystems(ctx)
			if err != nil {
				return nil, fmt.Errorf("loading goal star systems: %w", err)
			}
			logger.Debug("refreshed goal star systems", "count", len(names))
			return newSet(names), nil
		}),
		guilds: NewValue("star-system-guilds", ttl, clock, func(ctx context.Context) (map[string][]string, error) {
			m, err := src.StarSystemGuilds(ctx)
			if err != nil {
				return nil, fmt.Errorf("loading star system guilds: %w", err)
			}
			logger.Debug("refreshed star system guilds", "systems", len(m))
			return m, nil
		}),
		logger: logger,
	}
}

// IsSupportedMinorFaction reports whether any guild supports faction.
func (c *Caches) IsSupportedMinorFaction(ctx context.Context, faction string) (bool, error) {
	s, err := c.factions.Get(ctx)
	if err != nil {
		return false, err
	}
	_, ok := s[faction]
	return ok, nil
}

// IsGoalStarSystem reports whether any guild has an explicit goal in system.
func (c *Caches) IsGoalStarSystem(ctx context.Context, system string) (bool, error) {
	s, err := c.systems.Get(ctx)
	if err != nil {
		return false, err
	}
	_, ok := s[system]
	return ok, nil
}

// GuildsForStarSystem returns the guilds interested in system. The slice must not be modified.
func (c *Caches) GuildsForStarSystem(ctx context.Context, system string) ([]string, error) {
	m, err := c.guilds.Get(ctx)
	if err != nil {
		return nil, err
	}
	return m[system], nil
}

// Invalidate drops all three snapshots. Called after goal or faction configuration changes.
func (c *Caches) Invalidate() {
	c.factions.Invalidate()
	c.systems.Invalidate()
	c.guilds.Invalidate()
	c.logger.Debug("interest caches invalidated")
}
