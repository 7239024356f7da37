package goals

import "github.com/ajitpratap0/bgs-goals/internal/models"

// Conflict state labels.
const (
	StateActive       = "Active"
	StatePending      = "Pending"
	StateVictory      = "Victory"
	StateDefeat       = "Defeat"
	StateCloseVictory = "Close Victory"
	StateCloseDefeat  = "Close Defeat"
	StateTotalVictory = "Total Victory"
	StateTotalDefeat  = "Total Defeat"
)

// totalMargin is the lead in days at which a result is labelled total.
const totalMargin = 3

// ConflictSuggestion builds the suggestion to fight for (or against) faction in c.
// ok is false when faction is not a side of c.
func ConflictSuggestion(faction string, fightFor bool, c models.Conflict) (models.ConflictSuggestion, bool) {
	opponent, wonFor, wonAgainst, ok := c.Side(faction)
	if !ok {
		return models.ConflictSuggestion{}, false
	}

	s := models.ConflictSuggestion{
		StarSystem: c.StarSystem,
		WarType:    c.WarType,
		Status:     c.Status,
	}
	if fightFor {
		s.FightFor, s.FightAgainst = faction, opponent
		s.DaysWonFor, s.DaysWonAgainst = wonFor, wonAgainst
	} else {
		s.FightFor, s.FightAgainst = opponent, faction
		s.DaysWonFor, s.DaysWonAgainst = wonAgainst, wonFor
	}
	s.State = ConflictState(s.DaysWonFor, s.DaysWonAgainst, c.Status)
	return s, true
}

// ConflictState labels a conflict from the point of view of the side that has won
// wonFor days against wonAgainst.
func ConflictState(wonFor, wonAgainst int, status models.ConflictStatus) string {
	if status == models.ConflictPending {
		return StatePending
	}

	margin := wonFor - wonAgainst
	if margin == 0 {
		return StateActive
	}

	winning := margin > 0
	loserDays := wonAgainst
	if !winning {
		margin = -margin
		loserDays = wonFor
	}

	switch {
	case margin == 1:
		return pick(winning, StateCloseVictory, StateCloseDefeat)
	case margin >= totalMargin || loserDays == 0:
		return pick(winning, StateTotalVictory, StateTotalDefeat)
	default:
		return pick(winning, StateVictory, StateDefeat)
	}
}

func pick(winning bool, victory, defeat string) string {
	if winning {
		return victory
	}
	return defeat
}
