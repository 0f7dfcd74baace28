package game

import (
	"errors"
	"testing"
)

func TestNewBoard_BorderRingWithPortalGaps(t *testing.T) {
	b, err := NewBoard(80, 40, nil)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}

	gaps := map[Point]bool{
		{X: 40, Y: 1}:  true,
		{X: 40, Y: 40}: true,
		{X: 1, Y: 20}:  true,
		{X: 80, Y: 20}: true,
	}
	for x := 1; x <= b.Width; x++ {
		for y := 1; y <= b.Height; y++ {
			p := Point{X: x, Y: y}
			edge := x == 1 || y == 1 || x == b.Width || y == b.Height
			want := Empty
			if edge && !gaps[p] {
				want = Border
			}
			if got := b.CellAt(p); got != want {
				t.Fatalf("CellAt(%v)=%s want=%s", p, got, want)
			}
		}
	}
	for g := range gaps {
		if !b.IsPortalGap(g) {
			t.Fatalf("IsPortalGap(%v)=false", g)
		}
	}
}

func TestNewBoard_RejectsTinyBoards(t *testing.T) {
	_, err := NewBoard(3, 10, nil)
	if !errors.Is(err, ErrInvalidBoard) {
		t.Fatalf("err=%v want ErrInvalidBoard", err)
	}
}

func TestNewBoard_ObstacleSquares(t *testing.T) {
	b, err := NewBoard(20, 20, []Square{{X: 5, Y: 6, Side: 3}})
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	count := 0
	for x := 1; x <= b.Width; x++ {
		for y := 1; y <= b.Height; y++ {
			if b.CellAt(Point{X: x, Y: y}) == Obstacle {
				count++
				if x < 5 || x > 7 || y < 6 || y > 8 {
					t.Fatalf("unexpected obstacle at (%d,%d)", x, y)
				}
			}
		}
	}
	if count != 9 {
		t.Fatalf("obstacle cells=%d want=9", count)
	}
}

func TestNewBoard_ClipsObstaclesPastTheEdge(t *testing.T) {
	// Anchored near the bottom-right corner: most of the square lies off the grid.
	b, err := NewBoard(20, 20, []Square{{X: 18, Y: 18, Side: 5}})
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	for _, p := range []Point{{X: 18, Y: 18}, {X: 19, Y: 19}, {X: 18, Y: 19}} {
		if got := b.CellAt(p); got != Obstacle {
			t.Fatalf("CellAt(%v)=%s want=obstacle", p, got)
		}
	}
	// Border cells inside the square stay Border.
	if got := b.CellAt(Point{X: 20, Y: 18}); got != Border {
		t.Fatalf("CellAt(20,18)=%s want=border", got)
	}
}

func TestNewBoard_RejectsObstacleOnPortalGap(t *testing.T) {
	_, err := NewBoard(20, 20, []Square{{X: 19, Y: 9, Side: 3}})
	if !errors.Is(err, ErrPortalBlocked) {
		t.Fatalf("err=%v want ErrPortalBlocked", err)
	}
}

func TestNewBoard_RejectsNonPositiveSide(t *testing.T) {
	if _, err := NewBoard(20, 20, []Square{{X: 5, Y: 5, Side: 0}}); err == nil {
		t.Fatalf("expected error for zero side")
	}
}

func TestCellAt_OutOfBoundsSentinel(t *testing.T) {
	b, _ := NewBoard(10, 10, nil)
	for _, p := range []Point{{X: 0, Y: 5}, {X: 11, Y: 5}, {X: 5, Y: 0}, {X: 5, Y: 11}} {
		if got := b.CellAt(p); got != OutOfBounds {
			t.Fatalf("CellAt(%v)=%s want=out_of_bounds", p, got)
		}
		if b.InBounds(p) {
			t.Fatalf("InBounds(%v)=true", p)
		}
	}
}

func TestPlaceAndConsumeGoal(t *testing.T) {
	b, _ := NewBoard(10, 10, []Square{{X: 3, Y: 3, Side: 2}})

	p := Point{X: 6, Y: 6}
	if err := b.PlaceGoal(p); err != nil {
		t.Fatalf("PlaceGoal: %v", err)
	}
	if got := b.CellAt(p); got != Goal {
		t.Fatalf("CellAt=%s want=goal", got)
	}
	if err := b.MarkGoalConsumed(p); err != nil {
		t.Fatalf("MarkGoalConsumed: %v", err)
	}
	if got := b.CellAt(p); got != Empty {
		t.Fatalf("CellAt after consume=%s want=empty", got)
	}
	if err := b.MarkGoalConsumed(p); !errors.Is(err, ErrNoGoal) {
		t.Fatalf("second consume err=%v want ErrNoGoal", err)
	}

	if err := b.PlaceGoal(Point{X: 11, Y: 2}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("PlaceGoal OOB err=%v", err)
	}
	if err := b.PlaceGoal(Point{X: 3, Y: 3}); !errors.Is(err, ErrCellBlocked) {
		t.Fatalf("PlaceGoal on obstacle err=%v", err)
	}
	if err := b.MarkGoalConsumed(Point{X: 0, Y: 0}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("MarkGoalConsumed OOB err=%v", err)
	}
}

func TestBoardClone_IsIndependent(t *testing.T) {
	b, _ := NewBoard(10, 10, nil)
	c := b.Clone()
	if err := c.PlaceGoal(Point{X: 4, Y: 4}); err != nil {
		t.Fatalf("PlaceGoal: %v", err)
	}
	if b.CellAt(Point{X: 4, Y: 4}) != Empty {
		t.Fatalf("clone mutation leaked into original")
	}
}
