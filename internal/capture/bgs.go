package capture

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ajitpratap0/bgs-goals/internal/eddn"
	"github.com/ajitpratap0/bgs-goals/internal/metrics"
	"github.com/ajitpratap0/bgs-goals/internal/models"
	"github.com/ajitpratap0/bgs-goals/internal/store"
)

// BGSExtractor reads faction, security and conflict facts from system events.
type BGSExtractor struct {
	relevance Relevance
}

// NewBGSExtractor creates an extractor that only keeps messages relevant to some guild.
func NewBGSExtractor(relevance Relevance) *BGSExtractor {
	return &BGSExtractor{relevance: relevance}
}

// Extract returns the facts carried by msg, or nil when the message is not a system
// event or no guild cares about it: no listed faction is supported by a guild and the
// star system has no explicit goal.
func (x *BGSExtractor) Extract(ctx context.Context, msg *eddn.Message) (*models.SystemFacts, error) {
	ev, ok := msg.Event.(*eddn.SystemEvent)
	if !ok {
		return nil, nil
	}
	if ev.StarSystem == "" {
		return nil, missingField("message.StarSystem")
	}

	relevant, err := x.isRelevant(ctx, ev)
	if err != nil || !relevant {
		return nil, err
	}

	observed, err := eddn.ObservedAt(ev.Timestamp, msg.Envelope.Header.GatewayTimestamp)
	if err != nil {
		return nil, err
	}

	facts := &models.SystemFacts{
		StarSystem: ev.StarSystem,
		Timestamp:  observed,
		Factions:   make([]models.FactionFacts, 0, len(ev.Factions)),
	}

	controller := -1
	for i, f := range ev.Factions {
		field := fmt.Sprintf("message.Factions[%d]", i)
		if f.Name == "" {
			return nil, missingField(field + ".Name")
		}
		if f.Influence == nil {
			return nil, missingField(field + ".Influence")
		}
		inf := *f.Influence
		if math.IsNaN(inf) || inf < 0 || inf > 1 {
			return nil, badFormat(field+".Influence", fmt.Errorf("%w: influence %v outside [0,1]", ErrFormat, inf))
		}
		if controller < 0 || inf > facts.Factions[controller].Influence {
			controller = i
		}

		var states []string
		for _, s := range f.ActiveStates {
			if s.State != "" {
				states = append(states, s.State)
			}
		}
		facts.Factions = append(facts.Factions, models.FactionFacts{
			Name:      f.Name,
			Influence: inf,
			States:    states,
		})
	}
	if controller >= 0 && ev.SystemSecurity != "" {
		facts.Factions[controller].SecurityLevel = models.NormaliseSecurity(ev.SystemSecurity)
	}

	for i, c := range ev.Conflicts {
		conflict, err := conflictFacts(i, c)
		if err != nil {
			return nil, err
		}
		conflict.StarSystem = ev.StarSystem
		conflict.LastUpdated = observed
		facts.Conflicts = append(facts.Conflicts, conflict)
	}
	return facts, nil
}

func (x *BGSExtractor) isRelevant(ctx context.Context, ev *eddn.SystemEvent) (bool, error) {
	for _, f := range ev.Factions {
		if f.Name == "" {
			continue
		}
		ok, err := x.relevance.IsSupportedMinorFaction(ctx, f.Name)
		if err != nil {
			return false, fmt.Errorf("checking supported minor faction: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	ok, err := x.relevance.IsGoalStarSystem(ctx, ev.StarSystem)
	if err != nil {
		return false, fmt.Errorf("checking goal star system: %w", err)
	}
	return ok, nil
}

func conflictFacts(i int, c eddn.ConflictEntry) (models.Conflict, error) {
	field := fmt.Sprintf("message.Conflicts[%d]", i)
	if c.Faction1.Name == "" {
		return models.Conflict{}, missingField(field + ".Faction1.Name")
	}
	if c.Faction2.Name == "" {
		return models.Conflict{}, missingField(field + ".Faction2.Name")
	}
	if c.Faction1.WonDays < 0 || c.Faction2.WonDays < 0 {
		return models.Conflict{}, badFormat(field+".WonDays", fmt.Errorf("%w: negative won days", ErrFormat))
	}
	return models.Conflict{
		MinorFaction1:        c.Faction1.Name,
		MinorFaction1WonDays: c.Faction1.WonDays,
		MinorFaction1Stake:   c.Faction1.Stake,
		MinorFaction2:        c.Faction2.Name,
		MinorFaction2WonDays: c.Faction2.WonDays,
		MinorFaction2Stake:   c.Faction2.Stake,
		WarType:              models.WarType(strings.ToLower(c.WarType)),
		Status:               models.ConflictStatus(strings.ToLower(c.Status)),
	}, nil
}

// BGSProcessor stores the facts of every relevant system event.
type BGSProcessor struct {
	extractor *BGSExtractor
	st        store.Store
	logger    *slog.Logger
}

// NewBGSProcessor creates a processor writing extracted facts to st.
func NewBGSProcessor(extractor *BGSExtractor, st store.Store, logger *slog.Logger) *BGSProcessor {
	return &BGSProcessor{extractor: extractor, st: st, logger: logger}
}

func (p *BGSProcessor) Name() string { return "bgs" }

func (p *BGSProcessor) Process(ctx context.Context, msg *eddn.Message) error {
	facts, err := p.extractor.Extract(ctx, msg)
	if err != nil {
		return err
	}
	if facts == nil {
		return nil
	}
	if err := p.st.ApplySystemFacts(ctx, *facts); err != nil {
		return fmt.Errorf("storing facts for %s: %w", facts.StarSystem, err)
	}
	metrics.Inc(metrics.FactsStored)
	p.logger.Debug("stored system facts",
		"frame", msg.ID,
		"star_system", facts.StarSystem,
		"factions", len(facts.Factions),
		"conflicts", len(facts.Conflicts),
	)
	return nil
}
