package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/bgs-goals/internal/eddn"
	"github.com/ajitpratap0/bgs-goals/internal/models"
	"github.com/ajitpratap0/bgs-goals/internal/store"
)

var gateway = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeRelevance struct {
	factions map[string]bool
	systems  map[string]bool
	guilds   map[string][]string
	err      error
}

func (f *fakeRelevance) IsSupportedMinorFaction(_ context.Context, faction string) (bool, error) {
	return f.factions[faction], f.err
}

func (f *fakeRelevance) IsGoalStarSystem(_ context.Context, system string) (bool, error) {
	return f.systems[system], f.err
}

func (f *fakeRelevance) GuildsForStarSystem(_ context.Context, system string) ([]string, error) {
	return f.guilds[system], f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func inf(v float64) *float64 { return &v }

func message(ev eddn.Event) *eddn.Message {
	return &eddn.Message{
		ID:       "frame-1",
		Envelope: &eddn.Envelope{Header: eddn.Header{GatewayTimestamp: gateway}, Event: ev.EventName()},
		Event:    ev,
	}
}

func solJump() *eddn.SystemEvent {
	return &eddn.SystemEvent{
		Name:           eddn.EventFSDJump,
		Timestamp:      "2024-03-01T09:59:00Z",
		StarSystem:     "Sol",
		SystemSecurity: "$SYSTEM_SECURITY_medium;",
		Factions: []eddn.FactionEntry{
			{Name: "Alpha Party", Influence: inf(0.6), ActiveStates: []eddn.StateEntry{{State: "Boom"}}},
			{Name: "Beta Corp", Influence: inf(0.3)},
			{Name: "Gamma League", Influence: inf(0.1)},
		},
		Conflicts: []eddn.ConflictEntry{{
			WarType:  "War",
			Status:   "Active",
			Faction1: eddn.ConflictSide{Name: "Beta Corp", Stake: "Port", WonDays: 1},
			Faction2: eddn.ConflictSide{Name: "Gamma League", WonDays: 0},
		}},
	}
}

func TestBGSExtractor_Extract(t *testing.T) {
	x := NewBGSExtractor(&fakeRelevance{factions: map[string]bool{"Beta Corp": true}})
	facts, err := x.Extract(context.Background(), message(solJump()))
	require.NoError(t, err)
	require.NotNil(t, facts)

	assert.Equal(t, "Sol", facts.StarSystem)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 59, 0, 0, time.UTC), facts.Timestamp)
	assert.Equal(t, []string{"Alpha Party", "Beta Corp", "Gamma League"}, facts.FactionNames())
	assert.Equal(t, []string{"Boom"}, facts.Factions[0].States)
	assert.Nil(t, facts.Factions[1].States)

	require.Len(t, facts.Conflicts, 1)
	c := facts.Conflicts[0]
	assert.Equal(t, "Sol", c.StarSystem)
	assert.Equal(t, models.WarTypeWar, c.WarType)
	assert.Equal(t, models.ConflictActive, c.Status)
	assert.Equal(t, "Port", c.MinorFaction1Stake)
}

func TestBGSExtractor_SecurityGoesToController(t *testing.T) {
	x := NewBGSExtractor(&fakeRelevance{systems: map[string]bool{"Sol": true}})
	facts, err := x.Extract(context.Background(), message(solJump()))
	require.NoError(t, err)
	require.NotNil(t, facts)

	assert.Equal(t, models.SecurityMedium, facts.Factions[0].SecurityLevel)
	assert.Equal(t, models.SecurityUnknown, facts.Factions[1].SecurityLevel)
	assert.Equal(t, models.SecurityUnknown, facts.Factions[2].SecurityLevel)
}

func TestBGSExtractor_SecurityTieGoesToFirst(t *testing.T) {
	ev := solJump()
	ev.Factions = []eddn.FactionEntry{
		{Name: "Low", Influence: inf(0.2)},
		{Name: "First", Influence: inf(0.4)},
		{Name: "Second", Influence: inf(0.4)},
	}
	ev.Conflicts = nil
	x := NewBGSExtractor(&fakeRelevance{systems: map[string]bool{"Sol": true}})
	facts, err := x.Extract(context.Background(), message(ev))
	require.NoError(t, err)

	assert.Equal(t, models.SecurityUnknown, facts.Factions[0].SecurityLevel)
	assert.Equal(t, models.SecurityMedium, facts.Factions[1].SecurityLevel)
	assert.Equal(t, models.SecurityUnknown, facts.Factions[2].SecurityLevel)
}

func TestBGSExtractor_IrrelevantMessage(t *testing.T) {
	x := NewBGSExtractor(&fakeRelevance{factions: map[string]bool{"Other": true}})
	facts, err := x.Extract(context.Background(), message(solJump()))
	require.NoError(t, err)
	assert.Nil(t, facts)
}

func TestBGSExtractor_IgnoresOtherEvents(t *testing.T) {
	x := NewBGSExtractor(&fakeRelevance{systems: map[string]bool{"Sol": true}})
	facts, err := x.Extract(context.Background(), message(eddn.UnrecognizedEvent{Name: "Docked"}))
	require.NoError(t, err)
	assert.Nil(t, facts)
}

func TestBGSExtractor_Errors(t *testing.T) {
	relevant := &fakeRelevance{systems: map[string]bool{"Sol": true}}
	tests := []struct {
		name     string
		mutate   func(ev *eddn.SystemEvent)
		category eddn.Category
		format   bool
	}{
		{"missing system", func(ev *eddn.SystemEvent) { ev.StarSystem = "" }, eddn.CategoryMissingField, false},
		{"missing influence", func(ev *eddn.SystemEvent) { ev.Factions[1].Influence = nil }, eddn.CategoryMissingField, false},
		{"influence above one", func(ev *eddn.SystemEvent) { ev.Factions[1].Influence = inf(1.5) }, eddn.CategoryBadFormat, true},
		{"negative influence", func(ev *eddn.SystemEvent) { ev.Factions[1].Influence = inf(-0.1) }, eddn.CategoryBadFormat, true},
		{"bad timestamp", func(ev *eddn.SystemEvent) { ev.Timestamp = "yesterday" }, eddn.CategoryBadFormat, false},
		{"conflict without faction", func(ev *eddn.SystemEvent) { ev.Conflicts[0].Faction2.Name = "" }, eddn.CategoryMissingField, false},
		{"negative won days", func(ev *eddn.SystemEvent) { ev.Conflicts[0].Faction1.WonDays = -1 }, eddn.CategoryBadFormat, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev := solJump()
			tc.mutate(ev)
			_, err := NewBGSExtractor(relevant).Extract(context.Background(), message(ev))
			require.Error(t, err)
			assert.Equal(t, tc.category, eddn.CategoryOf(err))
			assert.Equal(t, tc.format, errors.Is(err, ErrFormat))
		})
	}
}

func TestBGSExtractor_RelevanceError(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewBGSExtractor(&fakeRelevance{err: boom}).Extract(context.Background(), message(solJump()))
	assert.ErrorIs(t, err, boom)
}

func TestBGSProcessor_StoresRelevantFacts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMockStore()
	p := NewBGSProcessor(NewBGSExtractor(&fakeRelevance{systems: map[string]bool{"Sol": true}}), st, testLogger())

	require.NoError(t, p.Process(ctx, message(solJump())))
	require.NoError(t, p.Process(ctx, message(solJump())))

	ps, err := st.PresencesInSystem(ctx, "Sol")
	require.NoError(t, err)
	assert.Len(t, ps, 3)
	cs, err := st.ConflictsInSystem(ctx, "Sol")
	require.NoError(t, err)
	assert.Len(t, cs, 1)
}

func TestBGSProcessor_IrrelevantWritesNothing(t *testing.T) {
	ctx := context.Background()
	st := store.NewMockStore()
	p := NewBGSProcessor(NewBGSExtractor(&fakeRelevance{}), st, testLogger())

	require.NoError(t, p.Process(ctx, message(solJump())))
	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StoreStats{}, *stats)
}

func TestParseCarrierSignal(t *testing.T) {
	tests := []struct {
		signal   string
		name     string
		callSign string
		ok       bool
	}{
		{"HMS BEAGLE K7Z-N0V", "HMS BEAGLE", "K7Z-N0V", true},
		{"K7Z-N0V", "", "K7Z-N0V", true},
		{"Jameson Memorial", "", "", false},
		{"hms beagle k7z-n0v", "", "", false},
	}
	for _, tc := range tests {
		name, callSign, ok := ParseCarrierSignal(tc.signal)
		assert.Equal(t, tc.ok, ok, tc.signal)
		assert.Equal(t, tc.name, name, tc.signal)
		assert.Equal(t, tc.callSign, callSign, tc.signal)
	}
}

func signals(system string, names ...string) *eddn.SignalsEvent {
	ev := &eddn.SignalsEvent{Name: eddn.EventFSSSignalDiscovered, StarSystem: system}
	for _, n := range names {
		ev.Signals = append(ev.Signals, eddn.Signal{SignalName: n, IsStation: true})
	}
	ev.Signals = append(ev.Signals, eddn.Signal{SignalName: "NAV BEACON ABC-123", IsStation: false})
	return ev
}

func TestCarrierProcessor_RecordsMoves(t *testing.T) {
	ctx := context.Background()
	st := store.NewMockStore()
	guilds := &fakeRelevance{guilds: map[string][]string{"Sol": {"g1"}, "Lave": {"g2"}}}
	p := NewCarrierProcessor(guilds, st, testLogger())

	first := message(signals("Sol", "HMS BEAGLE K7Z-N0V"))
	require.NoError(t, p.Process(ctx, first))

	second := message(signals("Lave", "HMS BEAGLE K7Z-N0V"))
	second.Envelope.Header.GatewayTimestamp = gateway.Add(time.Hour)
	require.NoError(t, p.Process(ctx, second))

	sightings, err := st.CarrierSightingsBefore(ctx, gateway.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, sightings, 1)
	assert.Equal(t, "K7Z-N0V", sightings[0].CarrierID)
	assert.Equal(t, "HMS BEAGLE", sightings[0].Name)
	assert.Equal(t, "Lave", sightings[0].StarSystem)
}

func TestCarrierProcessor_IgnoresUnfollowedSystems(t *testing.T) {
	ctx := context.Background()
	st := store.NewMockStore()
	p := NewCarrierProcessor(&fakeRelevance{}, st, testLogger())

	require.NoError(t, p.Process(ctx, message(signals("Sol", "HMS BEAGLE K7Z-N0V"))))
	require.NoError(t, p.Process(ctx, message(solJump())))

	stats, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Carriers)
}
