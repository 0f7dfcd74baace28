package nav

import (
	"testing"

	"github.com/brensch/snekgrid/game"
)

func TestDetourDistance_EntryPlusPairedExit(t *testing.T) {
	p := NewPortals(80, 40)
	head := game.Point{X: 12, Y: 7}
	goal := game.Point{X: 63, Y: 31}

	cases := []struct {
		via         PathClass
		entry, exit game.Point
	}{
		{ViaTop, p.Top, p.Bottom},
		{ViaBottom, p.Bottom, p.Top},
		{ViaLeft, p.Left, p.Right},
		{ViaRight, p.Right, p.Left},
	}
	for _, tc := range cases {
		want := game.Manhattan(head, tc.entry) + game.Manhattan(tc.exit, goal)
		if got := p.DetourDistance(head, goal, tc.via); got != want {
			t.Fatalf("%s: got=%d want=%d", tc.via, got, want)
		}
	}
	if got := p.DetourDistance(head, goal, Direct); got != game.Manhattan(head, goal) {
		t.Fatalf("direct: got=%d", got)
	}
}

func TestNewPortals_Layout(t *testing.T) {
	p := NewPortals(80, 40)
	want := Portals{
		Top:    game.Point{X: 40, Y: 0},
		Bottom: game.Point{X: 40, Y: 40},
		Left:   game.Point{X: 0, Y: 20},
		Right:  game.Point{X: 80, Y: 20},
	}
	if p != want {
		t.Fatalf("portals=%+v want=%+v", p, want)
	}
}

func TestSelectPathClass_ScenarioA(t *testing.T) {
	p := NewPortals(80, 40)
	head := game.Point{X: 40, Y: 20}
	goal := game.Point{X: 75, Y: 8}

	costs := p.Costs(head, goal)
	if costs[Direct] != 47 {
		t.Fatalf("direct=%d want=47", costs[Direct])
	}
	if costs[ViaRight] != 127 {
		t.Fatalf("via_right=%d want=127", costs[ViaRight])
	}

	class, target := SelectPathClass(p, head, goal, false)
	if class != Direct {
		t.Fatalf("class=%s costs=%v want=direct", class, costs)
	}
	if target != goal {
		t.Fatalf("target=%v want=%v", target, goal)
	}
}

func TestSelectPathClass_AllEqualPicksDirect(t *testing.T) {
	head := game.Point{X: 5, Y: 5}
	p := Portals{Top: head, Bottom: head, Left: head, Right: head}

	costs := p.Costs(head, head)
	for c, v := range costs {
		if v != costs[0] {
			t.Fatalf("cost[%d]=%d not equal to direct %d", c, v, costs[0])
		}
	}
	for i := 0; i < 10; i++ {
		if class, _ := SelectPathClass(p, head, head, false); class != Direct {
			t.Fatalf("class=%s want=direct", class)
		}
	}
}

func TestSelectPathClass_TieGoesToLowerIndex(t *testing.T) {
	// Top and Left relays cost the same; Direct and Bottom are dearer.
	p := Portals{
		Top:    game.Point{X: 2, Y: 3},
		Bottom: game.Point{X: 2, Y: 59},
		Left:   game.Point{X: 2, Y: 3},
		Right:  game.Point{X: 2, Y: 59},
	}
	head := game.Point{X: 2, Y: 2}
	goal := game.Point{X: 2, Y: 60}
	costs := p.Costs(head, goal)
	if costs[ViaTop] != costs[ViaLeft] || costs[ViaTop] >= costs[Direct] || costs[ViaBottom] <= costs[ViaTop] {
		t.Fatalf("bad fixture costs=%v", costs)
	}
	if class, _ := SelectPathClass(p, head, goal, false); class != ViaTop {
		t.Fatalf("class=%s want=via_top (costs=%v)", class, costs)
	}
}

func TestSelectPathClass_SubTargetFollowsCrossedFlag(t *testing.T) {
	p := NewPortals(80, 40)
	head := game.Point{X: 75, Y: 20}
	goal := game.Point{X: 5, Y: 20}

	class, target := SelectPathClass(p, head, goal, false)
	if class != ViaRight {
		t.Fatalf("class=%s want=via_right", class)
	}
	if target != p.Right {
		t.Fatalf("target=%v want right portal %v", target, p.Right)
	}

	_, target = SelectPathClass(p, head, goal, true)
	if target != goal {
		t.Fatalf("crossed target=%v want goal %v", target, goal)
	}
}

func TestRouter_LegLifecycle(t *testing.T) {
	r := NewRouter(NewPortals(80, 40))
	if r.Active() {
		t.Fatalf("router active before first leg")
	}

	class := r.BeginLeg(game.Point{X: 75, Y: 20}, game.Point{X: 5, Y: 20})
	if class != ViaRight || r.Class() != ViaRight {
		t.Fatalf("class=%s want=via_right", class)
	}
	if r.Target() != r.Portals().Right {
		t.Fatalf("target=%v want right portal", r.Target())
	}

	r.MarkCrossed()
	if !r.Crossed() || r.Target() != (game.Point{X: 5, Y: 20}) {
		t.Fatalf("after crossing target=%v crossed=%v", r.Target(), r.Crossed())
	}

	// The class is held for the leg even if the head moves somewhere the
	// costs would now favour another route.
	if r.Class() != ViaRight {
		t.Fatalf("class changed mid-leg")
	}

	r.BeginLeg(game.Point{X: 5, Y: 20}, game.Point{X: 10, Y: 20})
	if r.Crossed() {
		t.Fatalf("crossed flag survived a new leg")
	}
	if r.Class() != Direct || r.Target() != (game.Point{X: 10, Y: 20}) {
		t.Fatalf("class=%s target=%v", r.Class(), r.Target())
	}
	if got := r.Costs()[Direct]; got != 5 {
		t.Fatalf("direct cost=%d want=5", got)
	}
}
