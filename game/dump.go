package game

import (
	"fmt"
	"strings"
)

// Glyphs used by Dump.
const (
	GlyphEmpty    = '.'
	GlyphBorder   = '#'
	GlyphObstacle = '%'
	GlyphGoal     = '*'
)

// Dump renders the state as ASCII, top row first. Snake i is drawn with the
// lowercase letter 'a'+i and its head in uppercase.
func Dump(state *GameState) string {
	if state == nil || state.Board == nil {
		return "<nil state>"
	}
	b := state.Board

	grid := make([][]byte, b.Height)
	for y := 1; y <= b.Height; y++ {
		row := make([]byte, b.Width)
		for x := 1; x <= b.Width; x++ {
			row[x-1] = glyphFor(b.CellAt(Point{X: x, Y: y}))
		}
		grid[y-1] = row
	}

	for i, s := range state.Snakes {
		sym := byte('a' + i%26)
		// Tail first so the head wins when segments overlap.
		for j := len(s.Body) - 1; j >= 0; j-- {
			p := s.Body[j]
			if !b.InBounds(p) {
				continue
			}
			if j == 0 {
				grid[p.Y-1][p.X-1] = sym - 32
			} else {
				grid[p.Y-1][p.X-1] = sym
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Turn=%d Size=%dx%d", state.Turn, b.Width, b.Height)
	if state.Goals != nil {
		if g, ok := state.Goals.Current(); ok {
			fmt.Fprintf(&sb, " Goal[%d]=%v", state.Goals.Index(), g)
		} else {
			sb.WriteString(" Goals=done")
		}
	}
	sb.WriteByte('\n')
	for _, row := range grid {
		sb.Write(row)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func glyphFor(k CellKind) byte {
	switch k {
	case Border:
		return GlyphBorder
	case Obstacle:
		return GlyphObstacle
	case Goal:
		return GlyphGoal
	default:
		return GlyphEmpty
	}
}

// RenderKind is what a display draws in one cell: a board cell kind or a
// snake segment.
type RenderKind uint8

const (
	RenderEmpty RenderKind = iota
	RenderBorder
	RenderObstacle
	RenderGoal
	RenderHead
	RenderBody
)

var renderKindNames = [...]string{"empty", "border", "obstacle", "goal", "head", "body"}

func (k RenderKind) String() string {
	if int(k) < len(renderKindNames) {
		return renderKindNames[k]
	}
	return fmt.Sprintf("render(%d)", uint8(k))
}

// Glyph is the Dump character for k. Snake segments use the first snake's letters.
func (k RenderKind) Glyph() byte {
	switch k {
	case RenderBorder:
		return GlyphBorder
	case RenderObstacle:
		return GlyphObstacle
	case RenderGoal:
		return GlyphGoal
	case RenderHead:
		return 'A'
	case RenderBody:
		return 'a'
	}
	return GlyphEmpty
}

// Render maps a board cell kind to what is drawn when no snake covers it.
func (k CellKind) Render() RenderKind {
	switch k {
	case Border:
		return RenderBorder
	case Obstacle:
		return RenderObstacle
	case Goal:
		return RenderGoal
	}
	return RenderEmpty
}
