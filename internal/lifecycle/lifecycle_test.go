package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/bgs-goals/internal/models"
	"github.com/ajitpratap0/bgs-goals/internal/store"
)

func seedCarriers(t *testing.T, s store.Store, now time.Time) {
	t.Helper()
	ctx := context.Background()
	for _, c := range []models.CarrierSighting{
		{CarrierID: "OLD-001", Name: "OLD", StarSystem: "Sol", ObservedAt: now.Add(-10 * 24 * time.Hour)},
		{CarrierID: "OLD-002", Name: "OLDER", StarSystem: "Lave", ObservedAt: now.Add(-30 * 24 * time.Hour)},
		{CarrierID: "NEW-001", Name: "NEW", StarSystem: "Sol", ObservedAt: now.Add(-time.Hour)},
	} {
		_, _, err := s.RecordCarrierSighting(ctx, c)
		require.NoError(t, err)
	}
}

func newTestManager(s store.Store, now time.Time) *Manager {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	m := NewManager(s, 0, logger)
	m.now = func() time.Time { return now }
	return m
}

func TestLifecycle_PrunesOldCarriers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := store.NewMockStore()
	seedCarriers(t, s, now)

	report, err := newTestManager(s, now).Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CarriersPruned)

	left, err := s.CarrierSightingsBefore(ctx, now)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "NEW-001", left[0].CarrierID)
}

func TestLifecycle_DryRun(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := store.NewMockStore()
	seedCarriers(t, s, now)

	report, err := newTestManager(s, now).Run(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CarriersPruned)

	left, err := s.CarrierSightingsBefore(ctx, now)
	require.NoError(t, err)
	assert.Len(t, left, 3)
}

func TestNewManager_DefaultRetention(t *testing.T) {
	m := NewManager(store.NewMockStore(), -time.Hour, slog.Default())
	assert.Equal(t, DefaultCarrierRetention, m.carrierRetention)
}
