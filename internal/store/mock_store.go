package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ajitpratap0/bgs-goals/internal/models"
)

// MockStore is an in-memory implementation of Store for testing.
type MockStore struct {
	mu sync.RWMutex

	systems   map[string]time.Time // name -> last updated (zero if never)
	factions  map[string]struct{}
	presences map[models.PresenceKey]models.Presence
	conflicts map[string][]models.Conflict // star system -> conflicts
	guilds    map[string]string            // guild -> supported faction ("" if unset)
	goals     map[string]map[models.PresenceKey]string
	carriers  map[string]models.CarrierSighting
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		systems:   make(map[string]time.Time),
		factions:  make(map[string]struct{}),
		presences: make(map[models.PresenceKey]models.Presence),
		conflicts: make(map[string][]models.Conflict),
		guilds:    make(map[string]string),
		goals:     make(map[string]map[models.PresenceKey]string),
		carriers:  make(map[string]models.CarrierSighting),
	}
}

// EnsureSchema is a no-op for the mock store.
func (m *MockStore) EnsureSchema(_ context.Context) error {
	return nil
}

func (m *MockStore) ApplySystemFacts(_ context.Context, facts models.SystemFacts) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.systems[facts.StarSystem] = facts.Timestamp.UTC()
	listed := make(map[string]struct{}, len(facts.Factions))
	for _, ff := range facts.Factions {
		m.factions[ff.Name] = struct{}{}
		listed[ff.Name] = struct{}{}
		key := models.PresenceKey{StarSystem: facts.StarSystem, MinorFaction: ff.Name}
		m.presences[key] = models.Presence{
			StarSystem:    facts.StarSystem,
			MinorFaction:  ff.Name,
			Influence:     ff.Influence,
			SecurityLevel: ff.SecurityLevel,
			States:        uniqueSorted(ff.States),
		}
	}

	if len(listed) > 0 {
		for key := range m.presences {
			if key.StarSystem != facts.StarSystem {
				continue
			}
			if _, ok := listed[key.MinorFaction]; !ok {
				m.deletePresenceLocked(key)
			}
		}
	}

	for _, c := range facts.Conflicts {
		m.factions[c.MinorFaction1] = struct{}{}
		m.factions[c.MinorFaction2] = struct{}{}
		c.StarSystem = facts.StarSystem
		c.LastUpdated = facts.Timestamp.UTC()
		m.upsertConflictLocked(c)
	}
	return nil
}

func (m *MockStore) deletePresenceLocked(key models.PresenceKey) {
	delete(m.presences, key)
	for _, goals := range m.goals {
		delete(goals, key)
	}
}

func (m *MockStore) upsertConflictLocked(c models.Conflict) {
	list := m.conflicts[c.StarSystem]
	for i, existing := range list {
		switch {
		case existing.MinorFaction1 == c.MinorFaction1 && existing.MinorFaction2 == c.MinorFaction2:
			list[i] = c
			return
		case existing.MinorFaction1 == c.MinorFaction2 && existing.MinorFaction2 == c.MinorFaction1:
			list[i] = models.Conflict{
				StarSystem:           c.StarSystem,
				MinorFaction1:        c.MinorFaction2,
				MinorFaction1WonDays: c.MinorFaction2WonDays,
				MinorFaction1Stake:   c.MinorFaction2Stake,
				MinorFaction2:        c.MinorFaction1,
				MinorFaction2WonDays: c.MinorFaction1WonDays,
				MinorFaction2Stake:   c.MinorFaction1Stake,
				WarType:              c.WarType,
				Status:               c.Status,
				LastUpdated:          c.LastUpdated,
			}
			return
		}
	}
	m.conflicts[c.StarSystem] = append(list, c)
}

func uniqueSorted(states []string) []string {
	if len(states) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(states))
	out := make([]string, 0, len(states))
	for _, s := range states {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func copyPresence(p models.Presence) models.Presence {
	if len(p.States) > 0 {
		states := make([]string, len(p.States))
		copy(states, p.States)
		p.States = states
	}
	return p
}

func sortPresences(ps []models.Presence) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].StarSystem != ps[j].StarSystem {
			return ps[i].StarSystem < ps[j].StarSystem
		}
		if ps[i].Influence != ps[j].Influence {
			return ps[i].Influence > ps[j].Influence
		}
		return ps[i].MinorFaction < ps[j].MinorFaction
	})
}

func (m *MockStore) StarSystem(_ context.Context, name string) (*models.StarSystem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	updated, ok := m.systems[name]
	if !ok {
		return nil, fmt.Errorf("%w: star system %s", ErrNotFound, name)
	}
	return &models.StarSystem{Name: name, LastUpdated: updated}, nil
}

func (m *MockStore) HasMinorFaction(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.factions[name]
	return ok, nil
}

func (m *MockStore) Presence(_ context.Context, key models.PresenceKey) (*models.Presence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.presences[key]
	if !ok {
		return nil, fmt.Errorf("%w: presence of %s in %s", ErrNotFound, key.MinorFaction, key.StarSystem)
	}
	p = copyPresence(p)
	return &p, nil
}

func (m *MockStore) PresencesInSystem(_ context.Context, system string) ([]models.Presence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.presencesLocked(func(p models.Presence) bool { return p.StarSystem == system }), nil
}

func (m *MockStore) presencesLocked(match func(models.Presence) bool) []models.Presence {
	var out []models.Presence
	for _, p := range m.presences {
		if match(p) {
			out = append(out, copyPresence(p))
		}
	}
	sortPresences(out)
	return out
}

func (m *MockStore) ConflictsInSystem(_ context.Context, system string) ([]models.Conflict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conflictsLocked(system), nil
}

func (m *MockStore) conflictsLocked(system string) []models.Conflict {
	list := m.conflicts[system]
	if len(list) == 0 {
		return nil
	}
	out := make([]models.Conflict, len(list))
	copy(out, list)
	sort.Slice(out, func(i, j int) bool {
		if out[i].MinorFaction1 != out[j].MinorFaction1 {
			return out[i].MinorFaction1 < out[j].MinorFaction1
		}
		return out[i].MinorFaction2 < out[j].MinorFaction2
	})
	return out
}

func (m *MockStore) SupportedMinorFactions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, f := range m.guilds {
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockStore) GoalStarSystems(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, goals := range m.goals {
		for key := range goals {
			if _, ok := seen[key.StarSystem]; ok {
				continue
			}
			seen[key.StarSystem] = struct{}{}
			out = append(out, key.StarSystem)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockStore) StarSystemGuilds(_ context.Context) (map[string][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sets := make(map[string]map[string]struct{})
	add := func(system, guild string) {
		if sets[system] == nil {
			sets[system] = make(map[string]struct{})
		}
		sets[system][guild] = struct{}{}
	}
	for guild, goals := range m.goals {
		for key := range goals {
			add(key.StarSystem, guild)
		}
	}
	for guild, faction := range m.guilds {
		if faction == "" {
			continue
		}
		for key := range m.presences {
			if key.MinorFaction == faction {
				add(key.StarSystem, guild)
			}
		}
	}
	out := make(map[string][]string, len(sets))
	for system, guilds := range sets {
		for g := range guilds {
			out[system] = append(out[system], g)
		}
		sort.Strings(out[system])
	}
	return out, nil
}

func (m *MockStore) SupportedMinorFaction(_ context.Context, guildID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f := m.guilds[guildID]
	if f == "" {
		return "", fmt.Errorf("%w: supported minor faction for guild %s", ErrNotFound, guildID)
	}
	return f, nil
}

func (m *MockStore) SetSupportedMinorFaction(_ context.Context, guildID, faction string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factions[faction] = struct{}{}
	m.guilds[guildID] = faction
	return nil
}

func (m *MockStore) AddGoals(_ context.Context, goals []models.GoalAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range goals {
		if _, ok := m.guilds[g.GuildID]; !ok {
			m.guilds[g.GuildID] = ""
		}
		if _, ok := m.systems[g.StarSystem]; !ok {
			m.systems[g.StarSystem] = time.Time{}
		}
		m.factions[g.MinorFaction] = struct{}{}
		key := g.Key()
		if _, ok := m.presences[key]; !ok {
			m.presences[key] = models.Presence{StarSystem: g.StarSystem, MinorFaction: g.MinorFaction}
		}
		if m.goals[g.GuildID] == nil {
			m.goals[g.GuildID] = make(map[models.PresenceKey]string)
		}
		m.goals[g.GuildID][key] = g.Goal
	}
	return nil
}

func (m *MockStore) RemoveGoals(_ context.Context, guildID string, keys []models.PresenceKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	goals := m.goals[guildID]
	for _, k := range keys {
		if _, ok := goals[k]; !ok {
			return fmt.Errorf("%w: goal for %s in %s", ErrNotFound, k.MinorFaction, k.StarSystem)
		}
	}
	for _, k := range keys {
		delete(goals, k)
	}
	return nil
}

func (m *MockStore) Goals(_ context.Context, guildID string) ([]models.GoalAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.goalsLocked(guildID, ""), nil
}

// goalsLocked lists a guild's goals, restricted to faction when it is non-empty.
func (m *MockStore) goalsLocked(guildID, faction string) []models.GoalAssignment {
	var out []models.GoalAssignment
	for key, goal := range m.goals[guildID] {
		if faction != "" && key.MinorFaction != faction {
			continue
		}
		out = append(out, models.GoalAssignment{
			GuildID:      guildID,
			StarSystem:   key.StarSystem,
			MinorFaction: key.MinorFaction,
			Goal:         goal,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StarSystem != out[j].StarSystem {
			return out[i].StarSystem < out[j].StarSystem
		}
		return out[i].MinorFaction < out[j].MinorFaction
	})
	return out
}

func (m *MockStore) GuildSnapshot(_ context.Context, guildID string) (*models.GuildSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &models.GuildSnapshot{
		GuildID:         guildID,
		SystemPresences: make(map[string][]models.Presence),
		SystemConflicts: make(map[string][]models.Conflict),
	}
	faction := m.guilds[guildID]
	if faction == "" {
		return snap, nil
	}
	snap.MinorFaction = faction
	snap.Presences = m.presencesLocked(func(p models.Presence) bool { return p.MinorFaction == faction })
	snap.Goals = m.goalsLocked(guildID, faction)
	for _, p := range snap.Presences {
		system := p.StarSystem
		snap.SystemPresences[system] = m.presencesLocked(func(q models.Presence) bool { return q.StarSystem == system })
		if cs := m.conflictsLocked(system); len(cs) > 0 {
			snap.SystemConflicts[system] = cs
		}
	}
	return snap, nil
}

func (m *MockStore) RecordCarrierSighting(_ context.Context, s models.CarrierSighting) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ObservedAt = s.ObservedAt.UTC()
	prev, ok := m.carriers[s.CarrierID]
	if ok && s.ObservedAt.Before(prev.ObservedAt) {
		return false, prev.StarSystem, nil
	}
	m.carriers[s.CarrierID] = s
	if !ok {
		return false, "", nil
	}
	return prev.StarSystem != s.StarSystem, prev.StarSystem, nil
}

func (m *MockStore) CarrierSightingsBefore(_ context.Context, t time.Time) ([]models.CarrierSighting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.CarrierSighting{}
	for _, c := range m.carriers {
		if c.ObservedAt.Before(t) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out, nil
}

func (m *MockStore) DeleteCarrierSighting(_ context.Context, carrierID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carriers[carrierID]; !ok {
		return fmt.Errorf("%w: carrier %s", ErrNotFound, carrierID)
	}
	delete(m.carriers, carrierID)
	return nil
}

func (m *MockStore) Stats(_ context.Context) (*models.StoreStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var goals int64
	for _, g := range m.goals {
		goals += int64(len(g))
	}
	var conflicts int64
	for _, cs := range m.conflicts {
		conflicts += int64(len(cs))
	}
	return &models.StoreStats{
		StarSystems:   int64(len(m.systems)),
		MinorFactions: int64(len(m.factions)),
		Presences:     int64(len(m.presences)),
		Conflicts:     conflicts,
		Goals:         goals,
		Guilds:        int64(len(m.guilds)),
		Carriers:      int64(len(m.carriers)),
	}, nil
}

func (m *MockStore) Close() error {
	return nil
}
