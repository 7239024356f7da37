package goals

import (
	"fmt"

	"github.com/ajitpratap0/bgs-goals/internal/models"
)

// ContractViolation is the panic value raised when a goal is evaluated with presences or
// conflicts that do not describe the target's star system. It indicates a caller bug.
type ContractViolation struct {
	Reason string
}

func (c *ContractViolation) Error() string {
	return "goals: contract violation: " + c.Reason
}

func violate(format string, args ...any) {
	panic(&ContractViolation{Reason: fmt.Sprintf(format, args...)})
}

func checkContext(target models.Presence, presences []models.Presence, conflicts []models.Conflict) {
	system := target.StarSystem
	factions := make(map[string]struct{}, len(presences))
	foundTarget := false

	for _, p := range presences {
		if p.StarSystem != system {
			violate("presence %q is in %q, not %q", p.MinorFaction, p.StarSystem, system)
		}
		if p.MinorFaction == target.MinorFaction {
			foundTarget = true
		}
		factions[p.MinorFaction] = struct{}{}
	}
	if !foundTarget {
		violate("presences in %q do not include target %q", system, target.MinorFaction)
	}

	for _, c := range conflicts {
		if c.StarSystem != system {
			violate("conflict %q vs %q is in %q, not %q", c.MinorFaction1, c.MinorFaction2, c.StarSystem, system)
		}
		for _, f := range []string{c.MinorFaction1, c.MinorFaction2} {
			if _, ok := factions[f]; !ok {
				violate("conflict in %q references %q which has no presence", system, f)
			}
		}
	}
}
