package interest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSource struct {
	factions []string
	systems  []string
	guilds   map[string][]string
	calls    atomic.Int32
	err      error
}

func (f *fakeSource) SupportedMinorFactions(context.Context) ([]string, error) {
	f.calls.Add(1)
	return f.factions, f.err
}

func (f *fakeSource) GoalStarSystems(context.Context) ([]string, error) {
	f.calls.Add(1)
	return f.systems, f.err
}

func (f *fakeSource) StarSystemGuilds(context.Context) (map[string][]string, error) {
	f.calls.Add(1)
	return f.guilds, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCaches_Membership(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{
		factions: []string{"Alpha Party"},
		systems:  []string{"Sol"},
		guilds:   map[string][]string{"Sol": {"g1", "g2"}},
	}
	c := New(src, DefaultTTL, nil, discardLogger())

	ok, err := c.IsSupportedMinorFaction(ctx, "Alpha Party")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.IsSupportedMinorFaction(ctx, "Beta Corp")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.IsGoalStarSystem(ctx, "Sol")
	require.NoError(t, err)
	assert.True(t, ok)

	guilds, err := c.GuildsForStarSystem(ctx, "Sol")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, guilds)
	guilds, err = c.GuildsForStarSystem(ctx, "Achenar")
	require.NoError(t, err)
	assert.Empty(t, guilds)
}

func TestValue_StaleReadsUntilTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	src := &fakeSource{factions: []string{"Alpha Party"}}
	c := New(src, time.Minute, clock.Now, discardLogger())

	ok, err := c.IsSupportedMinorFaction(ctx, "Beta Corp")
	require.NoError(t, err)
	assert.False(t, ok)

	src.factions = []string{"Alpha Party", "Beta Corp"}
	clock.Advance(59 * time.Second)
	ok, err = c.IsSupportedMinorFaction(ctx, "Beta Corp")
	require.NoError(t, err)
	assert.False(t, ok, "snapshot is served until the TTL elapses")

	clock.Advance(time.Second)
	ok, err = c.IsSupportedMinorFaction(ctx, "Beta Corp")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestValue_Invalidate(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{systems: []string{"Sol"}}
	c := New(src, time.Hour, nil, discardLogger())

	ok, err := c.IsGoalStarSystem(ctx, "Achenar")
	require.NoError(t, err)
	assert.False(t, ok)

	src.systems = []string{"Sol", "Achenar"}
	c.Invalidate()
	ok, err = c.IsGoalStarSystem(ctx, "Achenar")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValue_LoadErrorIsReturned(t *testing.T) {
	boom := errors.New("db down")
	v := NewValue("test", time.Minute, nil, func(context.Context) (int, error) { return 0, boom })
	_, err := v.Get(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestValue_ConcurrentGets(t *testing.T) {
	var loads atomic.Int32
	v := NewValue("test", time.Hour, nil, func(context.Context) (int, error) {
		loads.Add(1)
		time.Sleep(10 * time.Millisecond)
		return 42, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := v.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 42, got)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, loads.Load(), int32(16))
	assert.GreaterOrEqual(t, loads.Load(), int32(1))
}

func TestValue_InvalidateDuringLoad(t *testing.T) {
	ctx := context.Background()
	var current atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	var loads atomic.Int32

	v := NewValue("during-load", time.Hour, nil, func(context.Context) (int32, error) {
		snapshot := current.Load()
		if loads.Add(1) == 1 {
			close(started)
			<-release
		}
		return snapshot, nil
	})

	done := make(chan int32)
	go func() {
		got, err := v.Get(ctx)
		assert.NoError(t, err)
		done <- got
	}()

	<-started
	current.Store(1)
	v.Invalidate()
	close(release)
	assert.Equal(t, int32(0), <-done)

	got, err := v.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), got, "a load that raced with Invalidate must not be served")
	assert.Equal(t, int32(2), loads.Load())
}
