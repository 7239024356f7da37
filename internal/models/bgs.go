package models

import (
	"strings"
	"time"
)

// StarSystem is a system tracked by name exactly as the game reports it.
type StarSystem struct {
	Name        string    `json:"name"`
	LastUpdated time.Time `json:"last_updated"`
}

// MinorFaction is a faction known by name.
type MinorFaction struct {
	Name string `json:"name"`
}

// SecurityLevel is the normalised system security reported with a jump or location event.
// The zero value means the level is unknown or not attributed to this presence.
type SecurityLevel string

const (
	SecurityUnknown SecurityLevel = ""
	SecurityLow     SecurityLevel = "low"
	SecurityMedium  SecurityLevel = "medium"
	SecurityHigh    SecurityLevel = "high"
	SecurityAnarchy SecurityLevel = "anarchy"
	SecurityLawless SecurityLevel = "lawless"
)

// NormaliseSecurity converts a journal security code such as "$SYSTEM_SECURITY_medium;"
// or "$GAlAXY_MAP_INFO_state_anarchy;" to a SecurityLevel. Bare words pass through lower-cased.
func NormaliseSecurity(code string) SecurityLevel {
	s := strings.TrimSpace(code)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "$"), ";")
	if i := strings.LastIndex(s, "_"); i >= 0 {
		s = s[i+1:]
	}
	return SecurityLevel(strings.ToLower(s))
}

// Common BGS state tags.
const (
	StateBoom      = "Boom"
	StateBust      = "Bust"
	StateElection  = "Election"
	StateWar       = "War"
	StateCivilWar  = "CivilWar"
	StateExpansion = "Expansion"
	StateRetreat   = "Retreat"
)

// Presence is a minor faction's footprint in one star system.
type Presence struct {
	StarSystem    string        `json:"star_system"`
	MinorFaction  string        `json:"minor_faction"`
	Influence     float64       `json:"influence"`
	SecurityLevel SecurityLevel `json:"security_level,omitempty"`
	States        []string      `json:"states"`
}

// Key returns the composite identity of the presence.
func (p Presence) Key() PresenceKey {
	return PresenceKey{StarSystem: p.StarSystem, MinorFaction: p.MinorFaction}
}

// HasState reports whether state is among the presence's active states.
func (p Presence) HasState(state string) bool {
	for _, s := range p.States {
		if s == state {
			return true
		}
	}
	return false
}

// PresenceKey identifies a presence by star system and minor faction name.
type PresenceKey struct {
	StarSystem   string `json:"star_system"`
	MinorFaction string `json:"minor_faction"`
}

// WarType classifies a conflict.
type WarType string

const (
	WarTypeWar      WarType = "war"
	WarTypeCivilWar WarType = "civilwar"
	WarTypeElection WarType = "election"
)

// ConflictStatus is the journal's status string for a conflict.
type ConflictStatus string

const (
	ConflictActive  ConflictStatus = "active"
	ConflictPending ConflictStatus = "pending"
	ConflictEnded   ConflictStatus = ""
)

// Conflict is a war, civil war or election between two factions in a system.
// Either faction may occupy slot 1.
type Conflict struct {
	StarSystem           string         `json:"star_system"`
	MinorFaction1        string         `json:"minor_faction1"`
	MinorFaction1WonDays int            `json:"minor_faction1_won_days"`
	MinorFaction1Stake   string         `json:"minor_faction1_stake,omitempty"`
	MinorFaction2        string         `json:"minor_faction2"`
	MinorFaction2WonDays int            `json:"minor_faction2_won_days"`
	MinorFaction2Stake   string         `json:"minor_faction2_stake,omitempty"`
	WarType              WarType        `json:"war_type"`
	Status               ConflictStatus `json:"status"`
	LastUpdated          time.Time      `json:"last_updated"`
}

// Involves reports whether faction is either side of the conflict.
func (c Conflict) Involves(faction string) bool {
	return c.MinorFaction1 == faction || c.MinorFaction2 == faction
}

// Side returns the opponent of faction and the days won by each side from
// faction's point of view. ok is false when faction is not in the conflict.
func (c Conflict) Side(faction string) (opponent string, wonFor, wonAgainst int, ok bool) {
	switch faction {
	case c.MinorFaction1:
		return c.MinorFaction2, c.MinorFaction1WonDays, c.MinorFaction2WonDays, true
	case c.MinorFaction2:
		return c.MinorFaction1, c.MinorFaction2WonDays, c.MinorFaction1WonDays, true
	default:
		return "", 0, 0, false
	}
}

// GoalAssignment is an explicit goal a guild has set on a presence. Goal holds the stored
// name verbatim so that unrecognised names can be surfaced rather than defaulted.
type GoalAssignment struct {
	GuildID      string `json:"guild_id"`
	StarSystem   string `json:"star_system"`
	MinorFaction string `json:"minor_faction"`
	Goal         string `json:"goal"`
}

// Key returns the presence the assignment applies to.
func (g GoalAssignment) Key() PresenceKey {
	return PresenceKey{StarSystem: g.StarSystem, MinorFaction: g.MinorFaction}
}

// GuildSnapshot is everything to-do list generation reads for one guild, loaded in a single
// read transaction.
type GuildSnapshot struct {
	GuildID string
	// MinorFaction is empty when the guild has no supported minor faction.
	MinorFaction    string
	Presences       []Presence
	Goals           []GoalAssignment
	SystemPresences map[string][]Presence
	SystemConflicts map[string][]Conflict
}

// CarrierSighting is a fleet carrier observed in a star system.
type CarrierSighting struct {
	CarrierID  string    `json:"carrier_id"`
	Name       string    `json:"name"`
	StarSystem string    `json:"star_system"`
	ObservedAt time.Time `json:"observed_at"`
}

// StoreStats holds row counts for the fact store.
type StoreStats struct {
	StarSystems   int64 `json:"star_systems"`
	MinorFactions int64 `json:"minor_factions"`
	Presences     int64 `json:"presences"`
	Conflicts     int64 `json:"conflicts"`
	Goals         int64 `json:"goals"`
	Guilds        int64 `json:"guilds"`
	Carriers      int64 `json:"carriers"`
}
