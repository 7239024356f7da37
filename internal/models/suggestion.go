package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SuggestionKind discriminates Suggestion variants.
type SuggestionKind string

const (
	SuggestionInfluence SuggestionKind = "influence"
	SuggestionSecurity  SuggestionKind = "security"
	SuggestionConflict  SuggestionKind = "conflict"
)

// Suggestion is a recommended player action. Implementations are comparable
// structs, so two suggestions with identical fields are the same suggestion.
type Suggestion interface {
	Kind() SuggestionKind
	System() string
}

// InfluenceSuggestion asks for influence work for (Pro) or against a faction.
type InfluenceSuggestion struct {
	StarSystem   string  `json:"star_system"`
	MinorFaction string  `json:"minor_faction"`
	Pro          bool    `json:"pro"`
	Influence    float64 `json:"influence"`
	Description  string  `json:"description,omitempty"`
}

func (InfluenceSuggestion) Kind() SuggestionKind { return SuggestionInfluence }
func (s InfluenceSuggestion) System() string     { return s.StarSystem }

func (s InfluenceSuggestion) MarshalJSON() ([]byte, error) {
	type plain InfluenceSuggestion
	return marshalKind(s.Kind(), plain(s))
}

// SecuritySuggestion flags a controlled system whose security has dropped.
type SecuritySuggestion struct {
	StarSystem    string        `json:"star_system"`
	MinorFaction  string        `json:"minor_faction"`
	SecurityLevel SecurityLevel `json:"security_level"`
}

func (SecuritySuggestion) Kind() SuggestionKind { return SuggestionSecurity }
func (s SecuritySuggestion) System() string     { return s.StarSystem }

func (s SecuritySuggestion) MarshalJSON() ([]byte, error) {
	type plain SecuritySuggestion
	return marshalKind(s.Kind(), plain(s))
}

// ConflictSuggestion asks players to fight for FightFor against FightAgainst.
type ConflictSuggestion struct {
	StarSystem     string         `json:"star_system"`
	FightFor       string         `json:"fight_for"`
	FightAgainst   string         `json:"fight_against"`
	WarType        WarType        `json:"war_type"`
	Status         ConflictStatus `json:"status"`
	DaysWonFor     int            `json:"days_won_for"`
	DaysWonAgainst int            `json:"days_won_against"`
	State          string         `json:"state"`
}

func (ConflictSuggestion) Kind() SuggestionKind { return SuggestionConflict }
func (s ConflictSuggestion) System() string     { return s.StarSystem }

func (s ConflictSuggestion) MarshalJSON() ([]byte, error) {
	type plain ConflictSuggestion
	return marshalKind(s.Kind(), plain(s))
}

func marshalKind(kind SuggestionKind, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	k, _ := json.Marshal(kind)
	fields["kind"] = k
	return json.Marshal(fields)
}

// SuggestionSet collects suggestions without duplicates.
type SuggestionSet map[Suggestion]struct{}

// Add inserts every suggestion into the set.
func (s SuggestionSet) Add(suggestions ...Suggestion) {
	for _, sg := range suggestions {
		s[sg] = struct{}{}
	}
}

// Contains reports whether sg is in the set.
func (s SuggestionSet) Contains(sg Suggestion) bool {
	_, ok := s[sg]
	return ok
}

// Sorted returns the set ordered by star system, then kind, then field values.
func (s SuggestionSet) Sorted() []Suggestion {
	out := make([]Suggestion, 0, len(s))
	for sg := range s {
		out = append(out, sg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].System() != out[j].System() {
			return out[i].System() < out[j].System()
		}
		if out[i].Kind() != out[j].Kind() {
			return out[i].Kind() < out[j].Kind()
		}
		return fmt.Sprintf("%+v", out[i]) < fmt.Sprintf("%+v", out[j])
	})
	return out
}

// ToDoList is the result of one generation run for a guild.
type ToDoList struct {
	MinorFaction string       `json:"minor_faction"`
	Suggestions  []Suggestion `json:"suggestions"`
}
