package nav

import (
	"fmt"

	"github.com/brensch/snekgrid/game"
	"github.com/brensch/snekgrid/rules"
)

// AxisPolicy decides which axis the greedy step closes first.
type AxisPolicy uint8

const (
	// VerticalFirst closes the Y gap, then the X gap.
	VerticalFirst AxisPolicy = iota
	// HorizontalFirst closes the X gap, then the Y gap.
	HorizontalFirst
	// LargerDelta closes whichever gap is wider; equal gaps go vertical.
	LargerDelta
)

var axisPolicyNames = [...]string{"vertical-first", "horizontal-first", "larger-delta"}

func (a AxisPolicy) String() string {
	if int(a) < len(axisPolicyNames) {
		return axisPolicyNames[a]
	}
	return fmt.Sprintf("axis(%d)", uint8(a))
}

// ParseAxisPolicy accepts the names printed by String. Empty means VerticalFirst.
func ParseAxisPolicy(s string) (AxisPolicy, error) {
	if s == "" {
		return VerticalFirst, nil
	}
	for i, name := range axisPolicyNames {
		if s == name {
			return AxisPolicy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown axis policy %q", s)
}

// MarshalText lets configs and logs carry the policy by name.
func (a AxisPolicy) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *AxisPolicy) UnmarshalText(b []byte) error {
	p, err := ParseAxisPolicy(string(b))
	if err != nil {
		return err
	}
	*a = p
	return nil
}

// fallbackOrder is tried in turn when the proposal is unsafe.
var fallbackOrder = [...]game.Direction{game.Left, game.Right, game.Up, game.Down}

// Decision is the planner's output for one tick.
type Decision struct {
	Target   game.Point
	Proposed game.Direction
	Chosen   game.Direction
	// Fallback is set when the proposal was unsafe and another direction was chosen.
	Fallback bool
	// NoSafe is set when no direction was safe; Chosen is then the risky proposal.
	NoSafe bool
}

// Planner converts a sub-target into one step.
type Planner struct {
	Policy AxisPolicy
}

func verticalStep(dy int) game.Direction {
	if dy > 0 {
		return game.Down
	}
	return game.Up
}

func horizontalStep(dx int) game.Direction {
	if dx > 0 {
		return game.Right
	}
	return game.Left
}

// Propose is the greedy axis-priority step from head toward target. When the
// head already sits on target (a portal entry), the snake keeps its heading
// so it walks through the gap.
func (p Planner) Propose(head, target game.Point, heading game.Direction) game.Direction {
	dx := target.X - head.X
	dy := target.Y - head.Y
	if dx == 0 && dy == 0 {
		return heading
	}

	vertical := false
	switch p.Policy {
	case VerticalFirst:
		vertical = dy != 0
	case HorizontalFirst:
		vertical = dx == 0
	case LargerDelta:
		ax, ay := dx, dy
		if ax < 0 {
			ax = -ax
		}
		if ay < 0 {
			ay = -ay
		}
		vertical = ay >= ax
	}

	if vertical {
		return verticalStep(dy)
	}
	return horizontalStep(dx)
}

// PredictHead is where s's head lands if it moves d this tick. Other snakes
// steer around it during planning.
func PredictHead(b *game.Board, s *game.Snake, d game.Direction) game.Point {
	next, _ := rules.NextHead(b, s.Head(), d)
	return next
}

// Safe reports whether direction d is safe for s given the others' bodies
// and the heads they are about to move into.
func Safe(b *game.Board, s *game.Snake, d game.Direction, others []game.Snake, predicted []game.Point) bool {
	return safe(b, s, d, others, predicted)
}

func safe(b *game.Board, s *game.Snake, d game.Direction, others []game.Snake, predicted []game.Point) bool {
	if !rules.IsSafe(b, s, d, others) {
		return false
	}
	if len(predicted) == 0 {
		return true
	}
	next, _ := rules.NextHead(b, s.Head(), d)
	for _, p := range predicted {
		if p == next {
			return false
		}
	}
	return true
}

// ChooseDirection proposes a step toward target and repairs it if unsafe:
// Left, Right, Up, Down after the proposal, first safe wins. If none is safe
// the risky proposal stands and the collision check settles it. predicted
// holds the other snakes' next heads for this tick. The route itself is
// never re-planned here.
func (p Planner) ChooseDirection(b *game.Board, s *game.Snake, target game.Point, others []game.Snake, predicted []game.Point) Decision {
	proposed := p.Propose(s.Head(), target, s.Heading)
	d := Decision{Target: target, Proposed: proposed, Chosen: proposed}

	if safe(b, s, proposed, others, predicted) {
		return d
	}
	for _, alt := range fallbackOrder {
		if alt == proposed {
			continue
		}
		if safe(b, s, alt, others, predicted) {
			d.Chosen = alt
			d.Fallback = true
			return d
		}
	}

	d.NoSafe = true
	return d
}
