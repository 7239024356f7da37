package guild

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/bgs-goals/internal/models"
	"github.com/ajitpratap0/bgs-goals/internal/store"
	"github.com/ajitpratap0/bgs-goals/internal/todo"
)

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(t *testing.T, validate bool) (*Service, *store.MockStore, *countingInvalidator) {
	t.Helper()
	st := store.NewMockStore()
	require.NoError(t, st.ApplySystemFacts(context.Background(), models.SystemFacts{
		StarSystem: "Sol",
		Timestamp:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Factions: []models.FactionFacts{
			{Name: "Alpha Party", Influence: 0.5},
			{Name: "Beta Corp", Influence: 0.5},
		},
	}))
	var validator NameValidator
	if validate {
		validator = NewStoreValidator(st)
	}
	inv := &countingInvalidator{}
	svc := NewService(st, todo.NewGenerator(st, testLogger()), validator, inv, testLogger())
	return svc, st, inv
}

func requireArgumentError(t *testing.T, err error, argument string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	var ae *ArgumentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, argument, ae.Argument)
}

func TestService_AddAndListGoals(t *testing.T) {
	ctx := context.Background()
	svc, _, inv := newTestService(t, true)

	added, err := svc.AddGoals(ctx, "g1", []GoalInput{
		{StarSystem: " Sol ", MinorFaction: "Alpha Party", Goal: "EXPAND"},
		{StarSystem: "Sol", MinorFaction: "Beta Corp", Goal: "retreat"},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, "Sol", added[0].StarSystem)
	assert.Equal(t, 1, inv.n)

	goals, err := svc.ListGoals(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "Expand", goals[0].Goal)
	assert.Equal(t, "Retreat", goals[1].Goal)
}

func TestService_AddGoals_RejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		input    GoalInput
		argument string
	}{
		{"unknown goal", GoalInput{StarSystem: "Sol", MinorFaction: "Beta Corp", Goal: "conquer"}, "goal"},
		{"unknown system", GoalInput{StarSystem: "Nowhere", MinorFaction: "Beta Corp", Goal: "control"}, "star system"},
		{"unknown faction", GoalInput{StarSystem: "Sol", MinorFaction: "Nobody", Goal: "control"}, "minor faction"},
		{"empty system", GoalInput{MinorFaction: "Beta Corp", Goal: "control"}, "star system"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, st, inv := newTestService(t, true)
			_, err := svc.AddGoals(ctx, "g1", []GoalInput{
				{StarSystem: "Sol", MinorFaction: "Alpha Party", Goal: "control"},
				tc.input,
			})
			requireArgumentError(t, err, tc.argument)

			goals, err := st.Goals(ctx, "g1")
			require.NoError(t, err)
			assert.Empty(t, goals)
			assert.Zero(t, inv.n)
		})
	}
}

func TestService_AddGoals_WithoutValidator(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, false)
	_, err := svc.AddGoals(ctx, "g1", []GoalInput{{StarSystem: "Achenar", MinorFaction: "Delta Union", Goal: "maintain"}})
	require.NoError(t, err)

	_, err = svc.AddGoals(ctx, "", []GoalInput{{StarSystem: "Achenar", MinorFaction: "Delta Union", Goal: "maintain"}})
	requireArgumentError(t, err, "guild")

	_, err = svc.AddGoals(ctx, "g1", nil)
	requireArgumentError(t, err, "goals")
}

func TestService_RemoveGoals(t *testing.T) {
	ctx := context.Background()
	svc, st, inv := newTestService(t, true)
	_, err := svc.AddGoals(ctx, "g1", []GoalInput{
		{StarSystem: "Sol", MinorFaction: "Alpha Party", Goal: "control"},
		{StarSystem: "Sol", MinorFaction: "Beta Corp", Goal: "retreat"},
	})
	require.NoError(t, err)

	err = svc.RemoveGoals(ctx, "g1", []models.PresenceKey{
		{StarSystem: "Sol", MinorFaction: "Alpha Party"},
		{StarSystem: "Sol", MinorFaction: "Gamma League"},
	})
	requireArgumentError(t, err, "minor faction")

	require.NoError(t, st.ApplySystemFacts(ctx, models.SystemFacts{
		StarSystem: "Lave",
		Timestamp:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Factions:   []models.FactionFacts{{Name: "Alpha Party", Influence: 1}},
	}))
	err = svc.RemoveGoals(ctx, "g1", []models.PresenceKey{
		{StarSystem: "Sol", MinorFaction: "Alpha Party"},
		{StarSystem: "Lave", MinorFaction: "Alpha Party"},
	})
	requireArgumentError(t, err, "goal")
	var ae *ArgumentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Alpha Party in Lave", ae.Value)

	goals, err := st.Goals(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, goals, 2)

	alpha := models.PresenceKey{StarSystem: "Sol", MinorFaction: " Alpha Party "}
	require.NoError(t, svc.RemoveGoals(ctx, "g1", []models.PresenceKey{alpha, {StarSystem: "Sol", MinorFaction: "Alpha Party"}}))
	goals, err = st.Goals(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, goals, 1)
	assert.Equal(t, 2, inv.n)
}

func TestService_RemoveGoals_RepeatedKeySQLite(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "bgs.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.EnsureSchema(ctx))
	require.NoError(t, st.ApplySystemFacts(ctx, models.SystemFacts{
		StarSystem: "Sol",
		Timestamp:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Factions:   []models.FactionFacts{{Name: "Alpha Party", Influence: 1}},
	}))
	svc := NewService(st, todo.NewGenerator(st, testLogger()), NewStoreValidator(st), nil, testLogger())

	_, err = svc.AddGoals(ctx, "g1", []GoalInput{{StarSystem: "Sol", MinorFaction: "Alpha Party", Goal: "control"}})
	require.NoError(t, err)

	key := models.PresenceKey{StarSystem: "Sol", MinorFaction: "Alpha Party"}
	require.NoError(t, svc.RemoveGoals(ctx, "g1", []models.PresenceKey{key, key}))

	goals, err := st.Goals(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestService_SetSupportedMinorFactionAndTodo(t *testing.T) {
	ctx := context.Background()
	svc, _, inv := newTestService(t, true)

	_, err := svc.GetTodoList(ctx, "g1")
	assert.ErrorIs(t, err, todo.ErrNoSupportedMinorFaction)

	requireArgumentError(t, svc.SetSupportedMinorFaction(ctx, "g1", "Nobody"), "minor faction")
	require.NoError(t, svc.SetSupportedMinorFaction(ctx, "g1", "Alpha Party"))
	assert.Equal(t, 1, inv.n)

	list, err := svc.GetTodoList(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Party", list.MinorFaction)
	assert.Equal(t, []models.Suggestion{
		models.InfluenceSuggestion{StarSystem: "Sol", MinorFaction: "Alpha Party", Pro: true, Influence: 0.5},
	}, list.Suggestions)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Guilds)
}

type failingValidator struct{}

func (failingValidator) IsKnownMinorFaction(context.Context, string) (bool, error) {
	return false, errors.New("lookup unavailable")
}

func (failingValidator) IsKnownStarSystem(context.Context, string) (bool, error) {
	return false, errors.New("lookup unavailable")
}

func TestService_ValidatorFailureIsNotArgumentError(t *testing.T) {
	st := store.NewMockStore()
	svc := NewService(st, todo.NewGenerator(st, testLogger()), failingValidator{}, nil, testLogger())
	err := svc.SetSupportedMinorFaction(context.Background(), "g1", "Alpha Party")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidArgument)
}
