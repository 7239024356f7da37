// Package guild is the read and write API a command surface calls on behalf of a guild.
package guild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ajitpratap0/bgs-goals/internal/goals"
	"github.com/ajitpratap0/bgs-goals/internal/models"
	"github.com/ajitpratap0/bgs-goals/internal/store"
	"github.com/ajitpratap0/bgs-goals/internal/todo"
)

// ErrInvalidArgument matches every *ArgumentError.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError reports a rejected write-API argument. Nothing is written when one is returned.
type ArgumentError struct {
	Argument string
	Value    string
	Reason   string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Argument, e.Value, e.Reason)
}

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// NameValidator decides whether names refer to real game entities.
type NameValidator interface {
	IsKnownMinorFaction(ctx context.Context, name string) (bool, error)
	IsKnownStarSystem(ctx context.Context, name string) (bool, error)
}

// Invalidator drops cached interest data after guild configuration changes.
type Invalidator interface {
	Invalidate()
}

// GoalInput is one requested goal assignment.
type GoalInput struct {
	StarSystem   string `json:"star_system"`
	MinorFaction string `json:"minor_faction"`
	Goal         string `json:"goal"`
}

// Service implements the guild-facing operations.
type Service struct {
	store     store.Store
	generator *todo.Generator
	validator NameValidator
	caches    Invalidator
	logger    *slog.Logger
}

// NewService creates the guild API. validator and caches may be nil, which skips name
// checks and cache invalidation respectively.
func NewService(st store.Store, generator *todo.Generator, validator NameValidator, caches Invalidator, logger *slog.Logger) *Service {
	return &Service{
		store:     st,
		generator: generator,
		validator: validator,
		caches:    caches,
		logger:    logger,
	}
}

// AddGoals validates every input and then stores them all; an invalid input rejects the batch.
func (s *Service) AddGoals(ctx context.Context, guildID string, inputs []GoalInput) ([]models.GoalAssignment, error) {
	if err := checkGuild(guildID); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, &ArgumentError{Argument: "goals", Reason: "at least one goal is required"}
	}

	assignments := make([]models.GoalAssignment, 0, len(inputs))
	for _, in := range inputs {
		key, err := s.checkPresence(ctx, in.StarSystem, in.MinorFaction)
		if err != nil {
			return nil, err
		}
		goal, err := goals.Parse(in.Goal)
		if err != nil {
			return nil, &ArgumentError{Argument: "goal", Value: in.Goal, Reason: "unknown goal"}
		}
		assignments = append(assignments, models.GoalAssignment{
			GuildID:      guildID,
			StarSystem:   key.StarSystem,
			MinorFaction: key.MinorFaction,
			Goal:         goal.String(),
		})
	}

	if err := s.store.AddGoals(ctx, assignments); err != nil {
		return nil, fmt.Errorf("adding goals: %w", err)
	}
	s.invalidate()
	s.logger.Info("goals added", "guild", guildID, "count", len(assignments))
	return assignments, nil
}

// RemoveGoals removes explicit goals. Naming a goal that is not set rejects the batch.
func (s *Service) RemoveGoals(ctx context.Context, guildID string, keys []models.PresenceKey) error {
	if err := checkGuild(guildID); err != nil {
		return err
	}
	if len(keys) == 0 {
		return &ArgumentError{Argument: "goals", Reason: "at least one goal is required"}
	}

	clean := make([]models.PresenceKey, 0, len(keys))
	seen := make(map[models.PresenceKey]struct{}, len(keys))
	for _, k := range keys {
		key, err := s.checkPresence(ctx, k.StarSystem, k.MinorFaction)
		if err != nil {
			return err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		clean = append(clean, key)
	}

	existing, err := s.store.Goals(ctx, guildID)
	if err != nil {
		return fmt.Errorf("listing goals: %w", err)
	}
	set := make(map[models.PresenceKey]struct{}, len(existing))
	for _, g := range existing {
		set[g.Key()] = struct{}{}
	}
	for _, k := range clean {
		if _, ok := set[k]; !ok {
			return &ArgumentError{Argument: "goal", Value: presenceName(k), Reason: "no goal is set"}
		}
	}

	if err := s.store.RemoveGoals(ctx, guildID, clean); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A goal removed concurrently since the check above.
			return &ArgumentError{Argument: "goal", Value: removedKeys(clean), Reason: err.Error()}
		}
		return fmt.Errorf("removing goals: %w", err)
	}
	s.invalidate()
	s.logger.Info("goals removed", "guild", guildID, "count", len(clean))
	return nil
}

// SetSupportedMinorFaction chooses the minor faction a guild works for.
func (s *Service) SetSupportedMinorFaction(ctx context.Context, guildID, faction string) error {
	if err := checkGuild(guildID); err != nil {
		return err
	}
	name, err := s.checkMinorFaction(ctx, faction)
	if err != nil {
		return err
	}
	if err := s.store.SetSupportedMinorFaction(ctx, guildID, name); err != nil {
		return fmt.Errorf("setting supported minor faction: %w", err)
	}
	s.invalidate()
	s.logger.Info("supported minor faction set", "guild", guildID, "minor_faction", name)
	return nil
}

// GetTodoList returns the guild's current suggestions. It fails with
// todo.ErrNoSupportedMinorFaction or a *goals.UnknownGoalError for misconfigured guilds.
func (s *Service) GetTodoList(ctx context.Context, guildID string) (*models.ToDoList, error) {
	if err := checkGuild(guildID); err != nil {
		return nil, err
	}
	return s.generator.Generate(ctx, guildID)
}

// ListGoals returns the guild's explicit goals.
func (s *Service) ListGoals(ctx context.Context, guildID string) ([]models.GoalAssignment, error) {
	if err := checkGuild(guildID); err != nil {
		return nil, err
	}
	return s.store.Goals(ctx, guildID)
}

// Stats returns fact store counts.
func (s *Service) Stats(ctx context.Context) (*models.StoreStats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) invalidate() {
	if s.caches != nil {
		s.caches.Invalidate()
	}
}

func presenceName(k models.PresenceKey) string {
	return k.MinorFaction + " in " + k.StarSystem
}

func removedKeys(keys []models.PresenceKey) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = presenceName(k)
	}
	return strings.Join(names, ", ")
}

func checkGuild(guildID string) error {
	if strings.TrimSpace(guildID) == "" {
		return &ArgumentError{Argument: "guild", Value: guildID, Reason: "must not be empty"}
	}
	return nil
}

func (s *Service) checkPresence(ctx context.Context, system, faction string) (models.PresenceKey, error) {
	sys := strings.TrimSpace(system)
	if sys == "" {
		return models.PresenceKey{}, &ArgumentError{Argument: "star system", Value: system, Reason: "must not be empty"}
	}
	if s.validator != nil {
		ok, err := s.validator.IsKnownStarSystem(ctx, sys)
		if err != nil {
			return models.PresenceKey{}, fmt.Errorf("validating star system %s: %w", sys, err)
		}
		if !ok {
			return models.PresenceKey{}, &ArgumentError{Argument: "star system", Value: system, Reason: "unknown star system"}
		}
	}
	f, err := s.checkMinorFaction(ctx, faction)
	if err != nil {
		return models.PresenceKey{}, err
	}
	return models.PresenceKey{StarSystem: sys, MinorFaction: f}, nil
}

func (s *Service) checkMinorFaction(ctx context.Context, faction string) (string, error) {
	f := strings.TrimSpace(faction)
	if f == "" {
		return "", &ArgumentError{Argument: "minor faction", Value: faction, Reason: "must not be empty"}
	}
	if s.validator != nil {
		ok, err := s.validator.IsKnownMinorFaction(ctx, f)
		if err != nil {
			return "", fmt.Errorf("validating minor faction %s: %w", f, err)
		}
		if !ok {
			return "", &ArgumentError{Argument: "minor faction", Value: faction, Reason: "unknown minor faction"}
		}
	}
	return f, nil
}
