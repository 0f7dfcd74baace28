package rules

import (
	"fmt"

	"github.com/brensch/snekgrid/game"
)

// GoalOutcome summarises the goal bookkeeping of one tick.
//
// EatenBy is the index of the snake that consumed the goal, or -1.
// Won is set when the consumed goal was the last one in the sequence.
type GoalOutcome struct {
	EatenBy  int
	Consumed game.Point
	Next     game.Point
	HasNext  bool
	Won      bool
}

// PlaceCurrentGoal puts the sequence's current goal on the board. It is a
// no-op once the sequence is exhausted.
func PlaceCurrentGoal(b *game.Board, goals *game.GoalSequence) error {
	p, ok := goals.Current()
	if !ok {
		return nil
	}
	if err := b.PlaceGoal(p); err != nil {
		return fmt.Errorf("goal %d: %w", goals.Index(), err)
	}
	return nil
}

// ApplyGoalRules runs after the snakes moved. The first snake (by index) that
// ate advances the goal cursor; the next goal, if any, is then placed.
func ApplyGoalRules(state *game.GameState, results []MoveResult) (GoalOutcome, error) {
	out := GoalOutcome{EatenBy: -1}

	for i, r := range results {
		if !r.AteGoal {
			continue
		}
		if !state.Goals.Consume(r.Head) {
			// Goal cell did not match the cursor; the board and sequence disagree.
			return out, fmt.Errorf("snake %s ate %v but current goal is index %d", state.Snakes[i].ID, r.Head, state.Goals.Index())
		}
		out.EatenBy = i
		out.Consumed = r.Head
		break
	}
	if out.EatenBy < 0 {
		return out, nil
	}

	if state.Goals.Done() {
		out.Won = true
		return out, nil
	}

	if err := PlaceCurrentGoal(state.Board, state.Goals); err != nil {
		return out, err
	}
	out.Next, out.HasNext = state.Goals.Current()
	return out, nil
}
