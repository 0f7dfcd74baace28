// food.go holds the fixed, ordered apple sequence a run chases.

package game

// GoalSequence is an ordered list of goals consumed one at a time. The cursor
// only moves when a head lands exactly on the current goal.
type GoalSequence struct {
	goals []Point
	next  int
}

// NewGoalSequence copies goals into a fresh sequence positioned at the first one.
func NewGoalSequence(goals []Point) *GoalSequence {
	gs := &GoalSequence{goals: make([]Point, len(goals))}
	copy(gs.goals, goals)
	return gs
}

// Current returns the goal being chased. ok is false once the sequence is exhausted.
func (g *GoalSequence) Current() (p Point, ok bool) {
	if g.next >= len(g.goals) {
		return Point{}, false
	}
	return g.goals[g.next], true
}

// Consume advances the cursor if head matches the current goal.
func (g *GoalSequence) Consume(head Point) bool {
	cur, ok := g.Current()
	if !ok || cur != head {
		return false
	}
	g.next++
	return true
}

// Index is the zero-based position of the current goal (== consumed count).
func (g *GoalSequence) Index() int { return g.next }

// Len is the total number of goals.
func (g *GoalSequence) Len() int { return len(g.goals) }

// Remaining is the number of goals not yet consumed.
func (g *GoalSequence) Remaining() int { return len(g.goals) - g.next }

// Done reports whether every goal has been consumed.
func (g *GoalSequence) Done() bool { return g.next >= len(g.goals) }

// Goals returns a copy of the full list.
func (g *GoalSequence) Goals() []Point {
	out := make([]Point, len(g.goals))
	copy(out, g.goals)
	return out
}

// Clone performs a deep copy including the cursor.
func (g *GoalSequence) Clone() *GoalSequence {
	if g == nil {
		return nil
	}
	out := NewGoalSequence(g.goals)
	out.next = g.next
	return out
}
