package models

import "time"

// FactionFacts is one faction's entry in an extracted message.
type FactionFacts struct {
	Name          string        `json:"name"`
	Influence     float64       `json:"influence"`
	SecurityLevel SecurityLevel `json:"security_level,omitempty"`
	States        []string      `json:"states"`
}

// SystemFacts is the BGS snapshot of one star system taken from one message.
// Factions keep message order.
type SystemFacts struct {
	StarSystem string         `json:"star_system"`
	Timestamp  time.Time      `json:"timestamp"`
	Factions   []FactionFacts `json:"factions"`
	Conflicts  []Conflict     `json:"conflicts"`
}

// FactionNames returns the faction names in message order.
func (f SystemFacts) FactionNames() []string {
	names := make([]string, 0, len(f.Factions))
	for _, ff := range f.Factions {
		names = append(names, ff.Name)
	}
	return names
}
