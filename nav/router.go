package nav

import "github.com/brensch/snekgrid/game"

// cheapest returns the index of the smallest cost. The scan only replaces on
// a strictly smaller value, so ties go to the lowest index.
func cheapest(costs [NumPathClasses]int) PathClass {
	best := PathClass(0)
	for c := PathClass(1); c < NumPathClasses; c++ {
		if costs[c] < costs[best] {
			best = c
		}
	}
	return best
}

// SelectPathClass picks the cheapest of the direct path and the four portal
// relays and returns the point to steer toward now: the portal entry while
// the leg has not crossed an edge yet, the goal otherwise.
func SelectPathClass(p Portals, head, goal game.Point, crossed bool) (PathClass, game.Point) {
	class := cheapest(p.Costs(head, goal))
	return class, subTarget(p, class, goal, crossed)
}

func subTarget(p Portals, class PathClass, goal game.Point, crossed bool) game.Point {
	if class.IsPortal() && !crossed {
		return p.Entry(class)
	}
	return goal
}

// Router holds one snake's routing state for the current leg. The path class
// is chosen once per goal; the sub-target is re-derived every tick from the
// crossed flag.
type Router struct {
	portals Portals

	goal    game.Point
	class   PathClass
	costs   [NumPathClasses]int
	crossed bool
	active  bool
}

func NewRouter(p Portals) *Router {
	return &Router{portals: p}
}

// BeginLeg starts a new leg toward goal from head: the path class is
// recomputed and the crossed flag cleared.
func (r *Router) BeginLeg(head, goal game.Point) PathClass {
	r.goal = goal
	r.costs = r.portals.Costs(head, goal)
	r.class = cheapest(r.costs)
	r.crossed = false
	r.active = true
	return r.class
}

// MarkCrossed records that the head wrapped past an edge during this leg.
func (r *Router) MarkCrossed() { r.crossed = true }

// Target is the sub-target for this tick.
func (r *Router) Target() game.Point {
	return subTarget(r.portals, r.class, r.goal, r.crossed)
}

func (r *Router) Goal() game.Point           { return r.goal }
func (r *Router) Class() PathClass           { return r.class }
func (r *Router) Crossed() bool              { return r.crossed }
func (r *Router) Costs() [NumPathClasses]int { return r.costs }
func (r *Router) Active() bool               { return r.active }
func (r *Router) Portals() Portals           { return r.portals }
