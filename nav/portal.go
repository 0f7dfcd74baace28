// Package nav picks where a snake heads next: the router compares a direct
// walk to the goal against four portal relays, and the planner turns the
// resulting sub-target into one safe step.
package nav

import (
	"fmt"

	"github.com/brensch/snekgrid/game"
)

// PathClass is the routing decision for a leg. The declaration order is the
// tie-break order.
type PathClass uint8

const (
	Direct PathClass = iota
	ViaTop
	ViaBottom
	ViaLeft
	ViaRight

	NumPathClasses = 5
)

var pathClassNames = [...]string{"direct", "via_top", "via_bottom", "via_left", "via_right"}

func (c PathClass) String() string {
	if int(c) < len(pathClassNames) {
		return pathClassNames[c]
	}
	return fmt.Sprintf("path(%d)", uint8(c))
}

// IsPortal reports whether c relays through a portal.
func (c PathClass) IsPortal() bool { return c >= ViaTop && c <= ViaRight }

// Portals are the four relay points on the board's edge midpoints. Top and
// Left sit one step outside the grid, Bottom and Right on its last row and
// column, so walking straight at any of them leads through a portal gap.
type Portals struct {
	Top    game.Point
	Bottom game.Point
	Left   game.Point
	Right  game.Point
}

// NewPortals returns the standard portal layout for a width×height board.
func NewPortals(width, height int) Portals {
	return Portals{
		Top:    game.Point{X: width / 2, Y: 0},
		Bottom: game.Point{X: width / 2, Y: height},
		Left:   game.Point{X: 0, Y: height / 2},
		Right:  game.Point{X: width, Y: height / 2},
	}
}

// Entry is the portal walked into for class c.
func (p Portals) Entry(c PathClass) game.Point {
	switch c {
	case ViaTop:
		return p.Top
	case ViaBottom:
		return p.Bottom
	case ViaLeft:
		return p.Left
	case ViaRight:
		return p.Right
	}
	return game.Point{}
}

// Exit is the paired portal on the opposite edge.
func (p Portals) Exit(c PathClass) game.Point {
	switch c {
	case ViaTop:
		return p.Bottom
	case ViaBottom:
		return p.Top
	case ViaLeft:
		return p.Right
	case ViaRight:
		return p.Left
	}
	return game.Point{}
}

// DetourDistance estimates the walk from -> entry, teleport, exit -> to.
// Obstacles and bodies are ignored. For Direct it is the plain Manhattan distance.
func (p Portals) DetourDistance(from, to game.Point, via PathClass) int {
	if !via.IsPortal() {
		return game.Manhattan(from, to)
	}
	return game.Manhattan(from, p.Entry(via)) + game.Manhattan(p.Exit(via), to)
}

// Costs returns the five candidate costs in tie-break order.
func (p Portals) Costs(head, goal game.Point) [NumPathClasses]int {
	var out [NumPathClasses]int
	for c := PathClass(0); c < NumPathClasses; c++ {
		out[c] = p.DetourDistance(head, goal, c)
	}
	return out
}
