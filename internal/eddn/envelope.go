package eddn

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Header is the relay-supplied part of an envelope.
type Header struct {
	GatewayTimestamp time.Time
	GameVersion      string
	SoftwareName     string
	SoftwareVersion  string
	UploaderID       string
}

// Envelope is a message that passed the gate.
type Envelope struct {
	SchemaRef string
	Header    Header
	// Event is the message's "event" discriminator, empty for schemas without one.
	Event   string
	Message []byte
}

// Gate parses envelopes and filters out messages from game clients older than a floor.
type Gate struct {
	floor Version
}

// NewGate creates a gate that rejects messages whose game version is below floor.
func NewGate(floor Version) *Gate {
	return &Gate{floor: floor}
}

// Admit parses doc. It returns ok=false with a nil error when the message comes from a
// client older than the floor or carries a source label such as "CAPI-Live-market"
// instead of a client version, and a *ParseError when the envelope is malformed.
func (g *Gate) Admit(doc []byte) (*Envelope, bool, error) {
	if !gjson.ValidBytes(doc) {
		return nil, false, &ParseError{Category: CategoryInvalidJSON}
	}
	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		return nil, false, badFormat("$", fmt.Errorf("envelope is not an object"))
	}

	ts := root.Get("header.gatewayTimestamp")
	if !ts.Exists() {
		return nil, false, missingField("header.gatewayTimestamp")
	}
	if ts.Type != gjson.String {
		return nil, false, badFormat("header.gatewayTimestamp", fmt.Errorf("not a string"))
	}
	gatewayTime, err := ParseTimestamp(ts.Str)
	if err != nil {
		return nil, false, badFormat("header.gatewayTimestamp", err)
	}

	msg := root.Get("message")
	if !msg.Exists() {
		return nil, false, missingField("message")
	}
	if !msg.IsObject() {
		return nil, false, badFormat("message", fmt.Errorf("not an object"))
	}

	env := &Envelope{
		SchemaRef: root.Get("$schemaRef").String(),
		Header: Header{
			GatewayTimestamp: gatewayTime,
			SoftwareName:     root.Get("header.softwareName").String(),
			SoftwareVersion:  root.Get("header.softwareVersion").String(),
			UploaderID:       root.Get("header.uploaderID").String(),
		},
		Message: []byte(msg.Raw),
	}

	if gv := root.Get("header.gameversion"); gv.Exists() && gv.Type != gjson.Null {
		if gv.Type != gjson.String {
			return nil, false, badFormat("header.gameversion", fmt.Errorf("not a string"))
		}
		env.Header.GameVersion = gv.Str
		if !isClientVersion(gv.Str) {
			return nil, false, nil
		}
		if gv.Str != "" {
			v, err := ParseVersion(gv.Str)
			if err != nil {
				return nil, false, badFormat("header.gameversion", err)
			}
			if v.Less(g.floor) {
				return nil, false, nil
			}
		}
	}

	if ev := msg.Get("event"); ev.Exists() {
		if ev.Type != gjson.String {
			return nil, false, badFormat("message.event", fmt.Errorf("not a string"))
		}
		env.Event = ev.Str
	}
	return env, true, nil
}

// ParseTimestamp reads an ISO-8601 timestamp as sent by the relay and the journal.
// Timestamps without a zone are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

// isClientVersion reports whether gameversion looks like a dotted client version.
// Empty values count as a client version and pass the gate.
func isClientVersion(gameversion string) bool {
	v := strings.TrimSpace(gameversion)
	return v == "" || (v[0] >= '0' && v[0] <= '9')
}
