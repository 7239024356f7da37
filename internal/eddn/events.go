package eddn

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event is a decoded message body. The concrete type is selected by the message's
// "event" field: *SystemEvent, *SignalsEvent, or UnrecognizedEvent.
type Event interface {
	EventName() string
}

// Journal event names with BGS facts.
const (
	EventLocation            = "Location"
	EventFSDJump             = "FSDJump"
	EventCarrierJump         = "CarrierJump"
	EventFSSSignalDiscovered = "FSSSignalDiscovered"
)

// SystemEvent carries the faction, security and conflict snapshot a client sees on
// arriving in or loading into a star system.
type SystemEvent struct {
	Name           string          `json:"event"`
	Timestamp      string          `json:"timestamp"`
	StarSystem     string          `json:"StarSystem"`
	SystemSecurity string          `json:"SystemSecurity"`
	Factions       []FactionEntry  `json:"Factions"`
	Conflicts      []ConflictEntry `json:"Conflicts"`
}

func (e *SystemEvent) EventName() string { return e.Name }

// FactionEntry is one element of a system event's Factions array.
type FactionEntry struct {
	Name         string       `json:"Name"`
	Influence    *float64     `json:"Influence"`
	FactionState string       `json:"FactionState"`
	ActiveStates []StateEntry `json:"ActiveStates"`
}

// StateEntry is one active, pending or recovering state.
type StateEntry struct {
	State string `json:"State"`
}

// ConflictEntry is one element of a system event's Conflicts array.
type ConflictEntry struct {
	WarType  string       `json:"WarType"`
	Status   string       `json:"Status"`
	Faction1 ConflictSide `json:"Faction1"`
	Faction2 ConflictSide `json:"Faction2"`
}

// ConflictSide is one party to a conflict.
type ConflictSide struct {
	Name    string `json:"Name"`
	Stake   string `json:"Stake"`
	WonDays int    `json:"WonDays"`
}

// SignalsEvent lists signal sources discovered by a full spectrum scan.
type SignalsEvent struct {
	Name       string   `json:"event"`
	Timestamp  string   `json:"timestamp"`
	StarSystem string   `json:"StarSystem"`
	Signals    []Signal `json:"signals"`
}

func (e *SignalsEvent) EventName() string { return e.Name }

// Signal is a single discovered signal source.
type Signal struct {
	SignalName string `json:"SignalName"`
	SignalType string `json:"SignalType"`
	IsStation  bool   `json:"IsStation"`
	Timestamp  string `json:"timestamp"`
}

// UnrecognizedEvent is any event no processor consumes.
type UnrecognizedEvent struct {
	Name string
}

func (e UnrecognizedEvent) EventName() string { return e.Name }

// DecodeEvent decodes the envelope's message into its typed event.
func DecodeEvent(env *Envelope) (Event, error) {
	switch env.Event {
	case EventLocation, EventFSDJump, EventCarrierJump:
		var ev SystemEvent
		if err := decodeMessage(env.Message, &ev); err != nil {
			return nil, err
		}
		return &ev, nil
	case EventFSSSignalDiscovered:
		var ev SignalsEvent
		if err := decodeMessage(env.Message, &ev); err != nil {
			return nil, err
		}
		return &ev, nil
	default:
		return UnrecognizedEvent{Name: env.Event}, nil
	}
}

func decodeMessage(raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return badFormat("message."+typeErr.Field, err)
	}
	return &ParseError{Category: CategoryInvalidJSON, Err: err}
}

// ObservedAt returns the event's own timestamp, falling back to fallback when absent.
func ObservedAt(timestamp string, fallback time.Time) (time.Time, error) {
	if timestamp == "" {
		return fallback, nil
	}
	t, err := ParseTimestamp(timestamp)
	if err != nil {
		return time.Time{}, badFormat("message.timestamp", fmt.Errorf("parsing: %w", err))
	}
	return t, nil
}

// Message is one admitted, decoded feed message as handed to processors.
type Message struct {
	// ID correlates log lines for the frame the message came from.
	ID       string
	Envelope *Envelope
	Event    Event
}
