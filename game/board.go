package game

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds   = errors.New("point out of bounds")
	ErrInvalidBoard  = errors.New("invalid board dimensions")
	ErrPortalBlocked = errors.New("obstacle covers a portal gap")
	ErrCellBlocked   = errors.New("cell is not empty")
	ErrNoGoal        = errors.New("no goal at point")
	ErrBodyOverlap   = errors.New("snake body overlaps")
)

// MinBoardSize is the smallest width or height that still leaves an interior.
const MinBoardSize = 4

// CellKind is the static content of a board cell.
type CellKind uint8

const (
	Empty CellKind = iota
	Border
	Obstacle
	Goal
	// OutOfBounds is returned by CellAt for points off the grid. It is never stored.
	OutOfBounds
)

func (k CellKind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Border:
		return "border"
	case Obstacle:
		return "obstacle"
	case Goal:
		return "goal"
	case OutOfBounds:
		return "out_of_bounds"
	}
	return fmt.Sprintf("cell(%d)", uint8(k))
}

// Blocking reports whether stepping onto a cell of this kind is fatal.
func (k CellKind) Blocking() bool {
	return k == Border || k == Obstacle || k == OutOfBounds
}

// Square is an axis-aligned obstacle anchored at its top-left cell.
type Square struct {
	X    int `yaml:"x" json:"x"`
	Y    int `yaml:"y" json:"y"`
	Side int `yaml:"side" json:"side"`
}

// Board owns the grid: border ring, portal gaps, obstacles and goal markers.
type Board struct {
	Width  int
	Height int

	cells []CellKind
	gaps  [4]Point
}

// PortalGaps returns the four border cells left open for wraparound, in the
// order top, bottom, left, right.
func PortalGaps(width, height int) [4]Point {
	return [4]Point{
		{X: width / 2, Y: 1},
		{X: width / 2, Y: height},
		{X: 1, Y: height / 2},
		{X: width, Y: height / 2},
	}
}

// NewBoard builds a board: all cells empty, a border ring with four portal
// gaps, then the obstacle squares. Obstacle cells falling outside the grid are
// clipped and cells landing on the border ring stay Border. An obstacle that
// would cover a portal gap is rejected.
func NewBoard(width, height int, obstacles []Square) (*Board, error) {
	if width < MinBoardSize || height < MinBoardSize {
		return nil, fmt.Errorf("%dx%d: %w", width, height, ErrInvalidBoard)
	}

	b := &Board{
		Width:  width,
		Height: height,
		cells:  make([]CellKind, width*height),
		gaps:   PortalGaps(width, height),
	}

	for x := 1; x <= width; x++ {
		b.set(Point{X: x, Y: 1}, Border)
		b.set(Point{X: x, Y: height}, Border)
	}
	for y := 1; y <= height; y++ {
		b.set(Point{X: 1, Y: y}, Border)
		b.set(Point{X: width, Y: y}, Border)
	}
	for _, g := range b.gaps {
		b.set(g, Empty)
	}

	for i, sq := range obstacles {
		if sq.Side <= 0 {
			return nil, fmt.Errorf("obstacle %d at (%d,%d): side %d must be positive", i, sq.X, sq.Y, sq.Side)
		}
		for dx := 0; dx < sq.Side; dx++ {
			for dy := 0; dy < sq.Side; dy++ {
				p := Point{X: sq.X + dx, Y: sq.Y + dy}
				if !b.InBounds(p) {
					continue
				}
				if b.IsPortalGap(p) {
					return nil, fmt.Errorf("obstacle %d at (%d,%d) covers %v: %w", i, sq.X, sq.Y, p, ErrPortalBlocked)
				}
				if b.at(p) == Border {
					continue
				}
				b.set(p, Obstacle)
			}
		}
	}

	return b, nil
}

func (b *Board) index(p Point) int { return (p.Y-1)*b.Width + (p.X - 1) }

func (b *Board) at(p Point) CellKind { return b.cells[b.index(p)] }

func (b *Board) set(p Point, k CellKind) { b.cells[b.index(p)] = k }

// InBounds reports whether p lies on the grid.
func (b *Board) InBounds(p Point) bool {
	return p.X >= 1 && p.X <= b.Width && p.Y >= 1 && p.Y <= b.Height
}

// CellAt returns the cell kind at p, or OutOfBounds for points off the grid.
func (b *Board) CellAt(p Point) CellKind {
	if !b.InBounds(p) {
		return OutOfBounds
	}
	return b.at(p)
}

// Gaps returns the portal gap cells (top, bottom, left, right).
func (b *Board) Gaps() [4]Point { return b.gaps }

// IsPortalGap reports whether p is one of the four open border cells.
func (b *Board) IsPortalGap(p Point) bool {
	for _, g := range b.gaps {
		if g == p {
			return true
		}
	}
	return false
}

// Wrap normalises p onto the board and reports whether it wrapped.
func (b *Board) Wrap(p Point) (Point, bool) {
	return WrapPoint(p, b.Width, b.Height)
}

// PlaceGoal marks p as holding a goal. The cell must be empty.
func (b *Board) PlaceGoal(p Point) error {
	if !b.InBounds(p) {
		return fmt.Errorf("place goal %v on %dx%d: %w", p, b.Width, b.Height, ErrOutOfBounds)
	}
	switch b.at(p) {
	case Goal:
		return nil
	case Empty:
		b.set(p, Goal)
		return nil
	default:
		return fmt.Errorf("place goal %v on %s: %w", p, b.at(p), ErrCellBlocked)
	}
}

// MarkGoalConsumed reverts a goal cell to Empty.
func (b *Board) MarkGoalConsumed(p Point) error {
	if !b.InBounds(p) {
		return fmt.Errorf("consume goal %v on %dx%d: %w", p, b.Width, b.Height, ErrOutOfBounds)
	}
	if b.at(p) != Goal {
		return fmt.Errorf("consume goal %v: %w", p, ErrNoGoal)
	}
	b.set(p, Empty)
	return nil
}

// Clone performs a deep copy of the board.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	out := *b
	out.cells = make([]CellKind, len(b.cells))
	copy(out.cells, b.cells)
	return &out
}
