// Package game defines the core state types for the portal snake simulation.
//
// Coordinates are 1-based and inclusive: (1,1) is the top-left cell of the
// board and (Width,Height) the bottom-right one. Y grows downward, so Up
// decreases Y. The board is toroidal: stepping past any edge re-enters on the
// opposite edge.
package game

import "fmt"

// Point is a board coordinate.
type Point struct {
	X int
	Y int
}

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Add returns p translated by one step in direction d. No wrapping.
func (p Point) Add(d Direction) Point {
	dx, dy := d.Delta()
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Manhattan returns |dx| + |dy| between a and b.
func Manhattan(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Wrap normalises a single 1-based coordinate onto [1, dim]. Values at or
// below zero re-enter at dim and values above dim re-enter at 1.
func Wrap(c, dim int) int {
	return ((c+dim-1)%dim+dim)%dim + 1
}

// WrapPoint normalises both axes independently and reports whether either
// axis wrapped.
func WrapPoint(p Point, width, height int) (Point, bool) {
	out := Point{X: Wrap(p.X, width), Y: Wrap(p.Y, height)}
	return out, out != p
}

// Direction is a single-cell move.
type Direction int8

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists every direction in declaration order.
var Directions = [...]Direction{Up, Down, Left, Right}

var directionNames = [...]string{"up", "down", "left", "right"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("direction(%d)", int8(d))
	}
	return directionNames[d]
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool { return d >= Up && d <= Right }

// Delta returns the unit offset for d in screen coordinates.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// ParseDirection maps a lowercase name ("up", "down", "left", "right") to a Direction.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if s == name {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Snake is a fixed-length agent. Body[0] is the head.
type Snake struct {
	ID      string
	Body    []Point
	Heading Direction
}

// NewSnake lays out a snake of the given length with its head at head and
// the rest of the body trailing behind it, opposite to heading. Trailing
// segments wrap around the board like any other position.
func NewSnake(id string, head Point, length int, heading Direction, width, height int) (Snake, error) {
	if length < 1 {
		return Snake{}, fmt.Errorf("snake %s: length %d must be positive", id, length)
	}
	if !heading.Valid() {
		return Snake{}, fmt.Errorf("snake %s: invalid heading %v", id, heading)
	}
	if head.X < 1 || head.X > width || head.Y < 1 || head.Y > height {
		return Snake{}, fmt.Errorf("snake %s: head %v: %w", id, head, ErrOutOfBounds)
	}

	body := make([]Point, length)
	body[0] = head
	back := heading.Opposite()
	for i := 1; i < length; i++ {
		body[i], _ = WrapPoint(body[i-1].Add(back), width, height)
	}
	return Snake{ID: id, Body: body, Heading: heading}, nil
}

// Head returns Body[0].
func (s *Snake) Head() Point { return s.Body[0] }

// Len is the fixed segment count.
func (s *Snake) Len() int { return len(s.Body) }

// OccupiesBody reports whether p matches any non-head segment.
func (s *Snake) OccupiesBody(p Point) bool {
	for i := 1; i < len(s.Body); i++ {
		if s.Body[i] == p {
			return true
		}
	}
	return false
}

// Occupies reports whether p matches any segment, head included.
func (s *Snake) Occupies(p Point) bool {
	for _, b := range s.Body {
		if b == p {
			return true
		}
	}
	return false
}

// Clone performs a deep copy of the snake.
func (s Snake) Clone() Snake {
	out := Snake{ID: s.ID, Heading: s.Heading}
	if len(s.Body) > 0 {
		out.Body = make([]Point, len(s.Body))
		copy(out.Body, s.Body)
	}
	return out
}

// GameState is a consistent snapshot of everything a tick reads.
type GameState struct {
	Board  *Board
	Snakes []Snake
	Goals  *GoalSequence
	Turn   int
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{Turn: s.Turn}
	if s.Board != nil {
		out.Board = s.Board.Clone()
	}
	if s.Goals != nil {
		out.Goals = s.Goals.Clone()
	}
	if len(s.Snakes) > 0 {
		out.Snakes = make([]Snake, len(s.Snakes))
		for i := range s.Snakes {
			out.Snakes[i] = s.Snakes[i].Clone()
		}
	}
	return out
}
