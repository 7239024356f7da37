// Package todo builds a guild's to-do list from its goals and the current BGS facts.
package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/bgs-goals/internal/goals"
	"github.com/ajitpratap0/bgs-goals/internal/metrics"
	"github.com/ajitpratap0/bgs-goals/internal/models"
	"github.com/ajitpratap0/bgs-goals/internal/store"
)

// ErrNoSupportedMinorFaction is returned for a guild that has not chosen a minor faction.
var ErrNoSupportedMinorFaction = errors.New("no supported minor faction")

// Generator evaluates goals for every presence of a guild's supported minor faction.
type Generator struct {
	store  store.Store
	logger *slog.Logger
}

// NewGenerator creates a to-do list generator.
func NewGenerator(st store.Store, logger *slog.Logger) *Generator {
	return &Generator{store: st, logger: logger}
}

// Generate returns the deduplicated suggestions for guildID. Presences with an explicit
// goal use it; every other presence of the faction uses goals.Default. A stored goal
// name that matches no goal fails the whole generation with a *goals.UnknownGoalError.
func (g *Generator) Generate(ctx context.Context, guildID string) (*models.ToDoList, error) {
	snap, err := g.store.GuildSnapshot(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if snap.MinorFaction == "" {
		return nil, fmt.Errorf("guild %s: %w", guildID, ErrNoSupportedMinorFaction)
	}

	explicit := make(map[models.PresenceKey]goals.Goal, len(snap.Goals))
	for _, a := range snap.Goals {
		goal, err := goals.Parse(a.Goal)
		if err != nil {
			return nil, fmt.Errorf("goal for %s in %s: %w", a.MinorFaction, a.StarSystem, err)
		}
		explicit[a.Key()] = goal
	}

	set := models.SuggestionSet{}
	for _, p := range snap.Presences {
		goal, ok := explicit[p.Key()]
		if !ok {
			goal = goals.Default
		}
		presences := snap.SystemPresences[p.StarSystem]
		conflicts := consistentConflicts(snap.SystemConflicts[p.StarSystem], presences)
		set.Add(goal.Suggestions(p, presences, conflicts)...)
	}

	metrics.Inc(metrics.TodoGenerated)
	g.logger.Debug("generated to-do list",
		"guild", guildID,
		"minor_faction", snap.MinorFaction,
		"presences", len(snap.Presences),
		"explicit_goals", len(explicit),
		"suggestions", len(set),
	)
	return &models.ToDoList{MinorFaction: snap.MinorFaction, Suggestions: set.Sorted()}, nil
}

// consistentConflicts keeps the conflicts whose factions both have a presence.
func consistentConflicts(conflicts []models.Conflict, presences []models.Presence) []models.Conflict {
	if len(conflicts) == 0 {
		return nil
	}
	present := make(map[string]struct{}, len(presences))
	for _, p := range presences {
		present[p.MinorFaction] = struct{}{}
	}
	out := make([]models.Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		_, ok1 := present[c.MinorFaction1]
		_, ok2 := present[c.MinorFaction2]
		if ok1 && ok2 {
			out = append(out, c)
		}
	}
	return out
}
