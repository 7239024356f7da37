package goals

import "github.com/ajitpratap0/bgs-goals/internal/models"

const (
	controlMinInfluence = 0.55
	controlMaxInfluence = 0.65

	expandTargetInfluence = 0.75

	maintainMinInfluence  = 0.08
	maintainControlMargin = 0.03

	retreatMinInfluence = 0.05
)

// Influence suggestion descriptions.
const (
	DescriptionExpanding    = "Expanding"
	DescriptionAvoidControl = "Avoid Control"
)

func control(target models.Presence, presences []models.Presence, conflicts []models.Conflict) []models.Suggestion {
	out := conflictSuggestions(target.MinorFaction, true, conflicts)
	if len(out) == 0 {
		switch {
		case target.Influence < controlMinInfluence:
			out = append(out, influence(target, true, ""))
		case target.Influence > controlMaxInfluence:
			out = append(out, influence(target, false, ""))
		}
	}

	if controller(presences).MinorFaction == target.MinorFaction && target.SecurityLevel == models.SecurityLow {
		out = append(out, models.SecuritySuggestion{
			StarSystem:    target.StarSystem,
			MinorFaction:  target.MinorFaction,
			SecurityLevel: target.SecurityLevel,
		})
	}
	return out
}

func expand(target models.Presence, conflicts []models.Conflict) []models.Suggestion {
	out := conflictSuggestions(target.MinorFaction, true, conflicts)
	if len(out) == 0 && target.Influence < expandTargetInfluence {
		out = append(out, influence(target, true, DescriptionExpanding))
	}
	return out
}

func maintain(target models.Presence, presences []models.Presence, conflicts []models.Conflict) []models.Suggestion {
	ctrl := controller(presences)
	isController := ctrl.MinorFaction == target.MinorFaction
	second, hasSecond := runnerUp(presences, target.MinorFaction)

	var out []models.Suggestion
	for _, c := range conflicts {
		if !c.Involves(target.MinorFaction) {
			continue
		}
		fightFor := true
		if isController && hasSecond && c.Involves(second.MinorFaction) {
			// The controller sides with the runner-up to shed control.
			fightFor = false
		}
		if s, ok := ConflictSuggestion(target.MinorFaction, fightFor, c); ok {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		return out
	}

	switch {
	case target.Influence < maintainMinInfluence:
		out = append(out, influence(target, true, ""))
	case target.Influence > ctrl.Influence-maintainControlMargin:
		out = append(out, influence(target, false, DescriptionAvoidControl))
	}
	return out
}

func retreat(target models.Presence, conflicts []models.Conflict) []models.Suggestion {
	out := conflictSuggestions(target.MinorFaction, false, conflicts)
	if len(out) == 0 && target.Influence >= retreatMinInfluence {
		out = append(out, influence(target, false, ""))
	}
	return out
}

func influence(p models.Presence, pro bool, description string) models.Suggestion {
	return models.InfluenceSuggestion{
		StarSystem:   p.StarSystem,
		MinorFaction: p.MinorFaction,
		Pro:          pro,
		Influence:    p.Influence,
		Description:  description,
	}
}

func conflictSuggestions(faction string, fightFor bool, conflicts []models.Conflict) []models.Suggestion {
	var out []models.Suggestion
	for _, c := range conflicts {
		if s, ok := ConflictSuggestion(faction, fightFor, c); ok {
			out = append(out, s)
		}
	}
	return out
}

// controller returns the presence with the highest influence; the first wins a tie.
// presences is never empty once checkContext has passed.
func controller(presences []models.Presence) models.Presence {
	best := presences[0]
	for _, p := range presences[1:] {
		if p.Influence > best.Influence {
			best = p
		}
	}
	return best
}

// runnerUp returns the highest-influence presence other than faction.
func runnerUp(presences []models.Presence, faction string) (models.Presence, bool) {
	var best models.Presence
	found := false
	for _, p := range presences {
		if p.MinorFaction == faction {
			continue
		}
		if !found || p.Influence > best.Influence {
			best = p
			found = true
		}
	}
	return best, found
}
