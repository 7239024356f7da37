package store

import (
	"context"
	"errors"
	"time"

	"github.com/ajitpratap0/bgs-goals/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary for BGS facts and guild configuration.
type Store interface {
	// EnsureSchema creates the tables if they don't exist.
	EnsureSchema(ctx context.Context) error

	// ApplySystemFacts upserts one message's snapshot of a star system as a single
	// atomic unit: the system is touched, every listed faction's presence is upserted
	// with its states replaced, presences of unlisted factions are deleted, and
	// conflicts are upserted.
	ApplySystemFacts(ctx context.Context, facts models.SystemFacts) error

	// StarSystem returns a star system by name.
	StarSystem(ctx context.Context, name string) (*models.StarSystem, error)

	// HasMinorFaction reports whether a minor faction has been recorded.
	HasMinorFaction(ctx context.Context, name string) (bool, error)

	// Presence returns one presence.
	Presence(ctx context.Context, key models.PresenceKey) (*models.Presence, error)

	// PresencesInSystem returns a system's presences, highest influence first.
	PresencesInSystem(ctx context.Context, system string) ([]models.Presence, error)

	// ConflictsInSystem returns the conflicts recorded for a system.
	ConflictsInSystem(ctx context.Context, system string) ([]models.Conflict, error)

	// SupportedMinorFactions returns the distinct supported minor factions of all guilds.
	SupportedMinorFactions(ctx context.Context) ([]string, error)

	// GoalStarSystems returns the distinct star systems with at least one explicit goal.
	GoalStarSystems(ctx context.Context) ([]string, error)

	// StarSystemGuilds maps each star system to the guilds interested in it, through
	// an explicit goal or a presence of the guild's supported minor faction.
	StarSystemGuilds(ctx context.Context) (map[string][]string, error)

	// SupportedMinorFaction returns a guild's supported minor faction, or ErrNotFound.
	SupportedMinorFaction(ctx context.Context, guildID string) (string, error)

	// SetSupportedMinorFaction sets a guild's supported minor faction, creating the
	// faction if needed.
	SetSupportedMinorFaction(ctx context.Context, guildID, faction string) error

	// AddGoals creates or replaces explicit goals, creating missing star systems,
	// factions and presences. All goals are written or none are.
	AddGoals(ctx context.Context, goals []models.GoalAssignment) error

	// RemoveGoals deletes a guild's explicit goals. If any goal does not exist it
	// returns ErrNotFound and removes nothing.
	RemoveGoals(ctx context.Context, guildID string, keys []models.PresenceKey) error

	// Goals returns a guild's explicit goals.
	Goals(ctx context.Context, guildID string) ([]models.GoalAssignment, error)

	// GuildSnapshot reads everything to-do list generation needs for a guild inside
	// one read transaction.
	GuildSnapshot(ctx context.Context, guildID string) (*models.GuildSnapshot, error)

	// RecordCarrierSighting stores a carrier's latest position. moved is true when the
	// carrier was previously seen in a different system; previous names that system.
	// Sightings older than the stored one are ignored.
	RecordCarrierSighting(ctx context.Context, s models.CarrierSighting) (moved bool, previous string, err error)

	// CarrierSightingsBefore lists carriers last seen before t.
	CarrierSightingsBefore(ctx context.Context, t time.Time) ([]models.CarrierSighting, error)

	// DeleteCarrierSighting removes a carrier.
	DeleteCarrierSighting(ctx context.Context, carrierID string) error

	// Stats returns row counts.
	Stats(ctx context.Context) (*models.StoreStats, error)

	// Close cleans up resources.
	Close() error
}
