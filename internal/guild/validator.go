package guild

import (
	"context"
	"errors"

	"github.com/ajitpratap0/bgs-goals/internal/store"
)

// StoreValidator accepts names the feed has already reported.
type StoreValidator struct {
	store store.Store
}

// NewStoreValidator creates a validator backed by the fact store.
func NewStoreValidator(st store.Store) *StoreValidator {
	return &StoreValidator{store: st}
}

func (v *StoreValidator) IsKnownMinorFaction(ctx context.Context, name string) (bool, error) {
	return v.store.HasMinorFaction(ctx, name)
}

func (v *StoreValidator) IsKnownStarSystem(ctx context.Context, name string) (bool, error) {
	_, err := v.store.StarSystem(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
