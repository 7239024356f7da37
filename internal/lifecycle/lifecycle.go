package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ajitpratap0/bgs-goals/internal/store"
)

// DefaultCarrierRetention is how long a fleet carrier sighting is kept without a newer one.
const DefaultCarrierRetention = 7 * 24 * time.Hour

// Report summarizes the results of a lifecycle run.
type Report struct {
	CarriersPruned int `json:"carriers_pruned"`
}

// Manager handles retention of short-lived facts.
type Manager struct {
	store            store.Store
	carrierRetention time.Duration
	now              func() time.Time
	logger           *slog.Logger
}

// NewManager creates a new lifecycle manager. A non-positive retention selects
// DefaultCarrierRetention.
func NewManager(st store.Store, carrierRetention time.Duration, logger *slog.Logger) *Manager {
	if carrierRetention <= 0 {
		carrierRetention = DefaultCarrierRetention
	}
	return &Manager{
		store:            st,
		carrierRetention: carrierRetention,
		now:              time.Now,
		logger:           logger,
	}
}

// Run executes all lifecycle operations.
func (m *Manager) Run(ctx context.Context, dryRun bool) (*Report, error) {
	report := &Report{}

	pruned, err := m.pruneCarriers(ctx, dryRun)
	if err != nil {
		return report, err
	}
	report.CarriersPruned = pruned

	return report, nil
}

// pruneCarriers removes carriers not seen within the retention window.
func (m *Manager) pruneCarriers(ctx context.Context, dryRun bool) (int, error) {
	cutoff := m.now().UTC().Add(-m.carrierRetention)
	sightings, err := m.store.CarrierSightingsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("listing carrier sightings: %w", err)
	}

	pruned := 0
	for _, s := range sightings {
		m.logger.Info("pruning carrier sighting", "carrier", s.CarrierID, "star_system", s.StarSystem, "observed_at", s.ObservedAt)
		if !dryRun {
			if err := m.store.DeleteCarrierSighting(ctx, s.CarrierID); err != nil {
				m.logger.Error("deleting carrier sighting", "carrier", s.CarrierID, "error", err)
				continue
			}
		}
		pruned++
	}

	return pruned, nil
}
