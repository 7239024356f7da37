// Package goals evaluates a guild's goal for a presence against current influence and
// conflict data and emits the suggestions players should act on.
package goals

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ajitpratap0/bgs-goals/internal/models"
)

// Goal is the policy applied to a tracked presence. The set is closed.
type Goal int

const (
	Control Goal = iota + 1
	Expand
	Maintain
	Retreat
	Ignore
)

// Default is applied to presences that have no explicit goal.
const Default = Control

var goalNames = map[Goal]string{
	Control:  "Control",
	Expand:   "Expand",
	Maintain: "Maintain",
	Retreat:  "Retreat",
	Ignore:   "Ignore",
}

var goalDescriptions = map[Goal]string{
	Control:  "Own the system: keep influence between 55% and 65% and security above low.",
	Expand:   "Grow influence towards 75% to trigger expansion.",
	Maintain: "Hold a presence without taking control.",
	Retreat:  "Withdraw from the system.",
	Ignore:   "Never suggest anything for this system.",
}

// All returns every goal in declaration order.
func All() []Goal {
	return []Goal{Control, Expand, Maintain, Retreat, Ignore}
}

func (g Goal) String() string {
	if name, ok := goalNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Goal(%d)", int(g))
}

// Description is a one-line summary of the goal's intent.
func (g Goal) Description() string {
	return goalDescriptions[g]
}

// ErrUnknownGoal matches any *UnknownGoalError.
var ErrUnknownGoal = errors.New("unknown goal")

// UnknownGoalError reports a goal name that matches no Goal.
type UnknownGoalError struct {
	Name string
}

func (e *UnknownGoalError) Error() string {
	return fmt.Sprintf("unknown goal %q", e.Name)
}

func (e *UnknownGoalError) Is(target error) bool { return target == ErrUnknownGoal }

// Parse looks a goal up by name, ignoring case and surrounding space.
func Parse(name string) (Goal, error) {
	n := strings.TrimSpace(name)
	for g, gn := range goalNames {
		if strings.EqualFold(gn, n) {
			return g, nil
		}
	}
	return 0, &UnknownGoalError{Name: name}
}

// Suggestions evaluates the goal for target. presences must be every presence in target's
// system, including target, and conflicts every conflict in that system; the call panics
// with a *ContractViolation otherwise.
func (g Goal) Suggestions(target models.Presence, presences []models.Presence, conflicts []models.Conflict) []models.Suggestion {
	checkContext(target, presences, conflicts)

	switch g {
	case Control:
		return control(target, presences, conflicts)
	case Expand:
		return expand(target, conflicts)
	case Maintain:
		return maintain(target, presences, conflicts)
	case Retreat:
		return retreat(target, conflicts)
	case Ignore:
		return nil
	default:
		panic(&ContractViolation{Reason: fmt.Sprintf("evaluating unknown goal %s", g)})
	}
}
