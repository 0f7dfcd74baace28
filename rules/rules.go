package rules

import (
	"github.com/brensch/snekgrid/game"
)

// Cause explains why a move collided.
type Cause uint8

const (
	CauseNone Cause = iota
	CauseBorder
	CauseObstacle
	CauseSelf
	CauseOther
	CauseHeadToHead
)

var causeNames = [...]string{"none", "border", "obstacle", "self", "other", "head_to_head"}

func (c Cause) String() string {
	if int(c) < len(causeNames) {
		return causeNames[c]
	}
	return "unknown"
}

// MoveResult is the outcome of advancing one snake by one cell.
type MoveResult struct {
	Head          game.Point
	AteGoal       bool
	Collided      bool
	CrossedPortal bool
	Cause         Cause
}

// NextHead returns where the head lands after moving in d, wrapped onto the
// board, and whether any axis wrapped.
func NextHead(b *game.Board, head game.Point, d game.Direction) (game.Point, bool) {
	return b.Wrap(head.Add(d))
}

// IsSafe reports whether moving s in direction d keeps it alive for one tick:
// the wrapped next head must not be a border or obstacle cell, one of the
// snake's own non-head segments, or any segment of the other snakes.
// Positions are read as they are now, before anything moves.
func IsSafe(b *game.Board, s *game.Snake, d game.Direction, others []game.Snake) bool {
	p, _ := NextHead(b, s.Head(), d)

	// 1. Static cells
	if b.CellAt(p).Blocking() {
		return false
	}

	// 2. Own body (tail included; it is conservative to treat it as still there)
	if s.OccupiesBody(p) {
		return false
	}

	// 3. Other snakes, head included
	for i := range others {
		if others[i].Occupies(p) {
			return false
		}
	}
	return true
}

// LegalMoves returns every direction IsSafe accepts, in Up, Down, Left, Right order.
func LegalMoves(b *game.Board, s *game.Snake, others []game.Snake) []game.Direction {
	moves := make([]game.Direction, 0, 4)
	for _, d := range game.Directions {
		if IsSafe(b, s, d, others) {
			moves = append(moves, d)
		}
	}
	return moves
}

// shift moves every non-head segment onto its predecessor's old position
// (tail first), then steps the head and wraps it.
func shift(b *game.Board, s *game.Snake, d game.Direction) bool {
	for i := len(s.Body) - 1; i > 0; i-- {
		s.Body[i] = s.Body[i-1]
	}
	head, wrapped := NextHead(b, s.Body[0], d)
	s.Body[0] = head
	s.Heading = d
	return wrapped
}

// landOn inspects the cell under a freshly moved head. A goal cell is consumed.
func landOn(b *game.Board, head game.Point, res *MoveResult) {
	switch b.CellAt(head) {
	case game.Goal:
		res.AteGoal = b.MarkGoalConsumed(head) == nil
	case game.Border, game.OutOfBounds:
		res.Collided = true
		res.Cause = CauseBorder
	case game.Obstacle:
		res.Collided = true
		res.Cause = CauseObstacle
	}
}

func collide(res *MoveResult, c Cause) {
	res.Collided = true
	if res.Cause == CauseNone {
		res.Cause = c
	}
}

// Advance moves s one cell in d and reports what happened. The other snakes
// are treated as static. The board is updated when a goal is eaten.
func Advance(b *game.Board, s *game.Snake, d game.Direction, others []game.Snake) MoveResult {
	var res MoveResult
	res.CrossedPortal = shift(b, s, d)
	res.Head = s.Head()

	landOn(b, res.Head, &res)

	if s.OccupiesBody(res.Head) {
		collide(&res, CauseSelf)
	}
	for i := range others {
		if others[i].Occupies(res.Head) {
			collide(&res, CauseOther)
		}
	}
	return res
}

// AdvanceAll moves every snake simultaneously. All directions must be chosen
// before calling; every snake moves before any collision is evaluated, so the
// outcome does not depend on slice order. Collisions are checked against the
// post-move bodies. Two heads on the same cell both collide. If two heads land
// on the goal, the lower index eats it.
func AdvanceAll(b *game.Board, snakes []game.Snake, dirs []game.Direction) []MoveResult {
	results := make([]MoveResult, len(snakes))

	for i := range snakes {
		results[i].CrossedPortal = shift(b, &snakes[i], dirs[i])
		results[i].Head = snakes[i].Head()
	}

	for i := range snakes {
		res := &results[i]
		landOn(b, res.Head, res)

		if snakes[i].OccupiesBody(res.Head) {
			collide(res, CauseSelf)
		}
		for j := range snakes {
			if j == i {
				continue
			}
			if snakes[j].OccupiesBody(res.Head) {
				collide(res, CauseOther)
			}
			if snakes[j].Head() == res.Head {
				collide(res, CauseHeadToHead)
			}
		}
	}

	return results
}

// Step advances the state in place: every snake moves with its direction,
// then goal bookkeeping runs and the turn counter increments.
func Step(state *game.GameState, dirs []game.Direction) ([]MoveResult, GoalOutcome, error) {
	var results []MoveResult
	if len(state.Snakes) == 1 {
		results = []MoveResult{Advance(state.Board, &state.Snakes[0], dirs[0], nil)}
	} else {
		results = AdvanceAll(state.Board, state.Snakes, dirs)
	}
	state.Turn++

	outcome, err := ApplyGoalRules(state, results)
	return results, outcome, err
}

// NextState returns the state after one tick without touching the input.
func NextState(state *game.GameState, dirs []game.Direction) (*game.GameState, []MoveResult, error) {
	next := state.Clone()
	results, _, err := Step(next, dirs)
	return next, results, err
}

// IsTerminal reports whether a tick's results end the run: any collision, or
// no goal left to chase.
func IsTerminal(state *game.GameState, results []MoveResult) bool {
	for _, r := range results {
		if r.Collided {
			return true
		}
	}
	return state.Goals.Done()
}
