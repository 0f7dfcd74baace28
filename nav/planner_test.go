package nav

import (
	"testing"

	"github.com/brensch/snekgrid/game"
	"github.com/brensch/snekgrid/rules"
)

func mustBoard(t *testing.T, w, h int, obstacles ...game.Square) *game.Board {
	t.Helper()
	b, err := game.NewBoard(w, h, obstacles)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	return b
}

func mustSnake(t *testing.T, head game.Point, length int, heading game.Direction, b *game.Board) game.Snake {
	t.Helper()
	s, err := game.NewSnake("me", head, length, heading, b.Width, b.Height)
	if err != nil {
		t.Fatalf("NewSnake: %v", err)
	}
	return s
}

func TestPropose_Policies(t *testing.T) {
	head := game.Point{X: 40, Y: 20}
	cases := []struct {
		policy AxisPolicy
		target game.Point
		want   game.Direction
	}{
		{VerticalFirst, game.Point{X: 75, Y: 8}, game.Up},
		{VerticalFirst, game.Point{X: 75, Y: 30}, game.Down},
		{VerticalFirst, game.Point{X: 75, Y: 20}, game.Right},
		{VerticalFirst, game.Point{X: 5, Y: 20}, game.Left},
		{HorizontalFirst, game.Point{X: 75, Y: 8}, game.Right},
		{HorizontalFirst, game.Point{X: 40, Y: 8}, game.Up},
		{LargerDelta, game.Point{X: 75, Y: 8}, game.Right},
		{LargerDelta, game.Point{X: 42, Y: 2}, game.Up},
		{LargerDelta, game.Point{X: 45, Y: 25}, game.Down},
	}
	for _, tc := range cases {
		got := Planner{Policy: tc.policy}.Propose(head, tc.target, game.Left)
		if got != tc.want {
			t.Fatalf("%s toward %v: got=%s want=%s", tc.policy, tc.target, got, tc.want)
		}
	}
}

func TestPropose_AtTargetKeepsHeading(t *testing.T) {
	p := Planner{}
	at := game.Point{X: 80, Y: 20}
	if got := p.Propose(at, at, game.Right); got != game.Right {
		t.Fatalf("got=%s want=right", got)
	}
	if got := p.Propose(at, at, game.Down); got != game.Down {
		t.Fatalf("got=%s want=down", got)
	}
}

func TestChooseDirection_ScenarioA(t *testing.T) {
	goal := game.Point{X: 75, Y: 8}

	t.Run("vertical-first open board", func(t *testing.T) {
		b := mustBoard(t, 80, 40)
		s := mustSnake(t, game.Point{X: 40, Y: 20}, 10, game.Right, b)
		d := Planner{Policy: VerticalFirst}.ChooseDirection(b, &s, goal, nil, nil)
		if d.Chosen != game.Up || d.Fallback {
			t.Fatalf("decision=%+v want up", d)
		}
		rules.Advance(b, &s, d.Chosen, nil)
		if s.Head() != (game.Point{X: 40, Y: 19}) {
			t.Fatalf("head=%v want=(40,19)", s.Head())
		}
	})

	t.Run("larger-delta open board", func(t *testing.T) {
		b := mustBoard(t, 80, 40)
		s := mustSnake(t, game.Point{X: 40, Y: 20}, 10, game.Right, b)
		d := Planner{Policy: LargerDelta}.ChooseDirection(b, &s, goal, nil, nil)
		rules.Advance(b, &s, d.Chosen, nil)
		if s.Head() != (game.Point{X: 41, Y: 20}) {
			t.Fatalf("head=%v want=(41,20)", s.Head())
		}
	})

	t.Run("vertical-first with obstacle above", func(t *testing.T) {
		// The block at (38,15) covers (40,19), so Up is repaired to the heading.
		b := mustBoard(t, 80, 40, game.Square{X: 38, Y: 15, Side: 5}, game.Square{X: 38, Y: 21, Side: 5})
		s := mustSnake(t, game.Point{X: 40, Y: 20}, 10, game.Right, b)
		d := Planner{Policy: VerticalFirst}.ChooseDirection(b, &s, goal, nil, nil)
		if d.Proposed != game.Up || d.Chosen != game.Right || !d.Fallback {
			t.Fatalf("decision=%+v want up repaired to right", d)
		}
	})
}

func TestChooseDirection_ScenarioB_PortalGapIsSafe(t *testing.T) {
	b := mustBoard(t, 80, 40)
	s := mustSnake(t, game.Point{X: 2, Y: 20}, 10, game.Left, b)
	p := NewPortals(80, 40)
	planner := Planner{}

	for i := 0; i < 2; i++ {
		d := planner.ChooseDirection(b, &s, p.Left, nil, nil)
		if d.Chosen != game.Left || d.Fallback {
			t.Fatalf("step %d decision=%+v want left", i, d)
		}
		res := rules.Advance(b, &s, d.Chosen, nil)
		if res.Collided {
			t.Fatalf("step %d collided: %+v", i, res)
		}
		if i == 1 && (!res.CrossedPortal || s.Head() != (game.Point{X: 80, Y: 20})) {
			t.Fatalf("wrap: head=%v crossed=%v", s.Head(), res.CrossedPortal)
		}
	}
}

func TestChooseDirection_ScenarioC_FallbackAvoidsOwnBody(t *testing.T) {
	b := mustBoard(t, 20, 20)
	// Coiled body: Right hits segment 5, Up hits segment 7, Down is the neck.
	s := game.Snake{ID: "me", Heading: game.Up, Body: []game.Point{
		{X: 10, Y: 10}, {X: 10, Y: 11}, {X: 11, Y: 11}, {X: 12, Y: 11},
		{X: 12, Y: 10}, {X: 11, Y: 10}, {X: 11, Y: 9}, {X: 10, Y: 9},
	}}

	d := Planner{}.ChooseDirection(b, &s, game.Point{X: 15, Y: 10}, nil, nil)
	if d.Proposed != game.Right {
		t.Fatalf("proposed=%s want=right", d.Proposed)
	}
	if next, _ := rules.NextHead(b, s.Head(), d.Proposed); next != s.Body[5] {
		t.Fatalf("fixture: proposal lands on %v, segment 5 is %v", next, s.Body[5])
	}
	if d.Chosen != game.Left || !d.Fallback || d.NoSafe {
		t.Fatalf("decision=%+v want fallback left", d)
	}
	for i, seg := range s.Body {
		if next, _ := rules.NextHead(b, s.Head(), d.Chosen); next == seg {
			t.Fatalf("chosen step hits segment %d", i)
		}
	}
}

func TestChooseDirection_ScenarioC_NoSafeDirectionCollidesNextTick(t *testing.T) {
	b := mustBoard(t, 20, 20)
	// Top-left pocket: border above and left, own body right and below.
	s := game.Snake{ID: "me", Heading: game.Left, Body: []game.Point{
		{X: 2, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 3}, {X: 2, Y: 3}, {X: 2, Y: 4},
	}}

	d := Planner{}.ChooseDirection(b, &s, game.Point{X: 5, Y: 5}, nil, nil)
	if !d.NoSafe || d.Fallback {
		t.Fatalf("decision=%+v want NoSafe", d)
	}
	if d.Chosen != d.Proposed || d.Chosen != game.Down {
		t.Fatalf("chosen=%s proposed=%s want the risky proposal (down)", d.Chosen, d.Proposed)
	}

	res := rules.Advance(b, &s, d.Chosen, nil)
	if !res.Collided || res.Cause != rules.CauseSelf {
		t.Fatalf("res=%+v want self collision", res)
	}
}

// Heading and Left are both safe here; Left wins because the fallback list
// starts over after the proposal rather than retrying the heading.
func TestChooseDirection_FallbackStartsAtLeft(t *testing.T) {
	b := mustBoard(t, 20, 20)
	s := game.Snake{ID: "me", Heading: game.Down, Body: []game.Point{{X: 10, Y: 10}, {X: 10, Y: 9}, {X: 10, Y: 8}}}

	d := Planner{}.ChooseDirection(b, &s, game.Point{X: 10, Y: 3}, nil, nil)
	if d.Proposed != game.Up {
		t.Fatalf("proposed=%s want up", d.Proposed)
	}
	if d.Chosen != game.Left || !d.Fallback {
		t.Fatalf("chosen=%s fallback=%v want left", d.Chosen, d.Fallback)
	}
}

func TestChooseDirection_AvoidsPredictedHead(t *testing.T) {
	b := mustBoard(t, 20, 20)
	me := game.Snake{ID: "a", Heading: game.Right, Body: []game.Point{{X: 5, Y: 5}, {X: 4, Y: 5}, {X: 3, Y: 5}}}
	other := game.Snake{ID: "b", Heading: game.Left, Body: []game.Point{{X: 7, Y: 5}, {X: 8, Y: 5}, {X: 9, Y: 5}}}

	otherDir := Planner{}.Propose(other.Head(), game.Point{X: 2, Y: 5}, other.Heading)
	predicted := []game.Point{PredictHead(b, &other, otherDir)}
	if predicted[0] != (game.Point{X: 6, Y: 5}) {
		t.Fatalf("predicted=%v want (6,5)", predicted[0])
	}
	if Safe(b, &me, game.Right, []game.Snake{other}, predicted) {
		t.Fatalf("Right lands on b's predicted head and should be unsafe")
	}

	d := Planner{}.ChooseDirection(b, &me, game.Point{X: 12, Y: 5}, []game.Snake{other}, predicted)
	if d.Proposed != game.Right || d.Chosen != game.Up || !d.Fallback {
		t.Fatalf("decision=%+v want right repaired to up", d)
	}
}

// b is heading Left but this tick turns Up, so the cell in front of it is
// free for a.
func TestChooseDirection_PredictsFromThisTicksProposal(t *testing.T) {
	b := mustBoard(t, 20, 20)
	me := game.Snake{ID: "a", Heading: game.Down, Body: []game.Point{{X: 7, Y: 5}, {X: 7, Y: 4}, {X: 7, Y: 3}}}
	other := game.Snake{ID: "b", Heading: game.Left, Body: []game.Point{{X: 8, Y: 6}, {X: 9, Y: 6}, {X: 10, Y: 6}}}

	otherDir := Planner{}.Propose(other.Head(), game.Point{X: 8, Y: 1}, other.Heading)
	if otherDir != game.Up {
		t.Fatalf("b proposes %s want up", otherDir)
	}
	predicted := []game.Point{PredictHead(b, &other, otherDir)}

	d := Planner{}.ChooseDirection(b, &me, game.Point{X: 7, Y: 10}, []game.Snake{other}, predicted)
	if d.Chosen != game.Down || d.Fallback {
		t.Fatalf("decision=%+v want down unrepaired", d)
	}

	// Had b kept its heading it would land on (7,6) and a would give way.
	kept := []game.Point{PredictHead(b, &other, other.Heading)}
	d = Planner{}.ChooseDirection(b, &me, game.Point{X: 7, Y: 10}, []game.Snake{other}, kept)
	if d.Chosen != game.Left || !d.Fallback {
		t.Fatalf("decision=%+v want left", d)
	}
}

func TestParseAxisPolicy(t *testing.T) {
	for _, p := range []AxisPolicy{VerticalFirst, HorizontalFirst, LargerDelta} {
		got, err := ParseAxisPolicy(p.String())
		if err != nil || got != p {
			t.Fatalf("ParseAxisPolicy(%q)=%v,%v", p.String(), got, err)
		}
	}
	if got, _ := ParseAxisPolicy(""); got != VerticalFirst {
		t.Fatalf("empty policy=%s", got)
	}
	var p AxisPolicy
	if err := p.UnmarshalText([]byte("diagonal")); err == nil {
		t.Fatalf("expected error")
	}
}
