// Package interest answers "is this entity relevant to any guild?" from time-bounded
// snapshots of the store, so the ingestion path avoids a database round trip per message.
package interest

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a snapshot is served before it is recomputed.
const DefaultTTL = 5 * time.Minute

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// Value is a read-through cache holding a single snapshot of T. The snapshot is
// loaded lazily on first use, after the TTL elapses, or after Invalidate.
// Concurrent refreshes share one load.
type Value[T any] struct {
	name  string
	load  func(ctx context.Context) (T, error)
	ttl   time.Duration
	clock Clock

	mu       sync.RWMutex
	value    T
	loadedAt time.Time
	valid    bool
	// gen is bumped by Invalidate. A load only publishes its snapshot when gen
	// is unchanged since it started.
	gen uint64

	group singleflight.Group
}

// NewValue creates a cache named name that refreshes through load.
func NewValue[T any](name string, ttl time.Duration, clock Clock, load func(ctx context.Context) (T, error)) *Value[T] {
	if clock == nil {
		clock = time.Now
	}
	return &Value[T]{name: name, load: load, ttl: ttl, clock: clock}
}

// Get returns the current snapshot, reloading it if it is missing or expired.
// A failed reload returns the error and leaves the previous snapshot invalid.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	v.mu.RLock()
	if v.valid && v.clock().Sub(v.loadedAt) < v.ttl {
		val := v.value
		v.mu.RUnlock()
		return val, nil
	}
	v.mu.RUnlock()

	res, err, _ := v.group.Do(v.name, func() (any, error) {
		v.mu.RLock()
		gen := v.gen
		v.mu.RUnlock()

		val, err := v.load(ctx)
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		if v.gen == gen {
			v.value = val
			v.loadedAt = v.clock()
			v.valid = true
		}
		v.mu.Unlock()
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Invalidate forces the next Get to reload.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	v.valid = false
	v.gen++
	v.mu.Unlock()
}
