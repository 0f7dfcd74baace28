// Package sim drives the snakes: each tick it asks every router for a
// sub-target, plans one step per snake from the same snapshot, advances them
// together and does the goal bookkeeping.
package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/brensch/snekgrid/game"
	"github.com/brensch/snekgrid/nav"
	"github.com/brensch/snekgrid/rules"
)

var (
	ErrFinished = errors.New("simulation already finished")
	ErrNoLeg    = errors.New("snake has no active leg")
)

// SnakeSetup describes one agent at turn zero.
type SnakeSetup struct {
	ID      string
	Head    game.Point
	Length  int
	Heading game.Direction
	Policy  nav.AxisPolicy
}

// Setup is everything New needs to lay out a run.
type Setup struct {
	Width     int
	Height    int
	Obstacles []game.Square
	Goals     []game.Point
	Snakes    []SnakeSetup

	// Sink receives every cell draw and erase. Optional.
	Sink CellSink
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// AgentStep is what one snake did during a tick.
type AgentStep struct {
	ID       string
	Class    nav.PathClass
	Target   game.Point
	Proposed game.Direction
	Chosen   game.Direction
	Fallback bool
	NoSafe   bool

	Head          game.Point
	AteGoal       bool
	Collided      bool
	CrossedPortal bool
	Cause         rules.Cause
}

// TickResult summarises one tick. Chasing is the index of the goal the
// snakes were heading for; GoalIndex is the index eaten this tick, or -1.
type TickResult struct {
	Turn      int
	Agents    []AgentStep
	Chasing   int
	AteGoal   bool
	GoalIndex int
	Collided  bool
	Won       bool
}

// Done reports whether the tick ended the run.
func (r TickResult) Done() bool { return r.Collided || r.Won }

// AgentStats are the per-snake counters kept across a run.
type AgentStats struct {
	ID        string `json:"id"`
	Steps     int    `json:"steps"`
	Goals     int    `json:"goals"`
	Fallbacks int    `json:"fallbacks"`
	NoSafe    int    `json:"no_safe"`
	Crossings int    `json:"crossings"`
	Collided  bool   `json:"collided"`
}

// Simulation owns the state of one run. It is not safe for concurrent use.
type Simulation struct {
	state    *game.GameState
	routers  []*nav.Router
	planners []nav.Planner

	sink CellSink
	log  *slog.Logger

	stats     []AgentStats
	legStart  int
	legTicks  []float64
	finished  bool
	lastTick  TickResult
	scratch   [][]game.Snake
	prevTails []game.Point
}

// New validates setup, lays out the board and snakes, places the first goal
// and starts the first leg for every snake.
func New(setup Setup) (*Simulation, error) {
	if len(setup.Snakes) == 0 {
		return nil, errors.New("setup: at least one snake is required")
	}
	if len(setup.Goals) == 0 {
		return nil, fmt.Errorf("setup: empty goal sequence: %w", game.ErrNoGoal)
	}

	board, err := game.NewBoard(setup.Width, setup.Height, setup.Obstacles)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	for i, g := range setup.Goals {
		if !board.InBounds(g) {
			return nil, fmt.Errorf("setup: goal %d at %v: %w", i, g, game.ErrOutOfBounds)
		}
		if k := board.CellAt(g); k != game.Empty {
			return nil, fmt.Errorf("setup: goal %d at %v is %s: %w", i, g, k, game.ErrCellBlocked)
		}
	}

	state := &game.GameState{
		Board:  board,
		Snakes: make([]game.Snake, 0, len(setup.Snakes)),
		Goals:  game.NewGoalSequence(setup.Goals),
	}

	seen := make(map[string]bool, len(setup.Snakes))
	for i, ss := range setup.Snakes {
		id := ss.ID
		if id == "" {
			id = fmt.Sprintf("snake%d", i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("setup: duplicate snake id %q", id)
		}
		seen[id] = true

		s, err := game.NewSnake(id, ss.Head, ss.Length, ss.Heading, board.Width, board.Height)
		if err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}
		own := make(map[game.Point]bool, len(s.Body))
		for _, p := range s.Body {
			if own[p] {
				return nil, fmt.Errorf("setup: snake %s of length %d wraps onto itself at %v: %w", id, len(s.Body), p, game.ErrBodyOverlap)
			}
			own[p] = true
			if board.CellAt(p).Blocking() {
				return nil, fmt.Errorf("setup: snake %s segment %v is %s: %w", id, p, board.CellAt(p), game.ErrCellBlocked)
			}
			for j := range state.Snakes {
				if state.Snakes[j].Occupies(p) {
					return nil, fmt.Errorf("setup: snake %s overlaps snake %s at %v: %w", id, state.Snakes[j].ID, p, game.ErrBodyOverlap)
				}
			}
		}
		state.Snakes = append(state.Snakes, s)
	}

	if err := rules.PlaceCurrentGoal(board, state.Goals); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	logger := setup.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sim := &Simulation{
		state:     state,
		routers:   make([]*nav.Router, len(state.Snakes)),
		planners:  make([]nav.Planner, len(state.Snakes)),
		sink:      setup.Sink,
		log:       logger,
		stats:     make([]AgentStats, len(state.Snakes)),
		scratch:   make([][]game.Snake, len(state.Snakes)),
		prevTails: make([]game.Point, len(state.Snakes)),
	}
	portals := nav.NewPortals(board.Width, board.Height)
	for i := range state.Snakes {
		sim.routers[i] = nav.NewRouter(portals)
		sim.planners[i] = nav.Planner{Policy: setup.Snakes[i].Policy}
		sim.stats[i].ID = state.Snakes[i].ID
	}
	sim.beginLegs()
	return sim, nil
}

// beginLegs points every router at the current goal.
func (s *Simulation) beginLegs() {
	goal, ok := s.state.Goals.Current()
	if !ok {
		return
	}
	s.legStart = s.state.Turn
	for i := range s.routers {
		head := s.state.Snakes[i].Head()
		class := s.routers[i].BeginLeg(head, goal)
		c := s.routers[i].Costs()
		s.log.Info("leg started",
			"snake", s.state.Snakes[i].ID,
			"turn", s.state.Turn,
			"goal_index", s.state.Goals.Index(),
			"goal", goal.String(),
			"class", class.String(),
			"direct", c[nav.Direct],
			"via_top", c[nav.ViaTop],
			"via_bottom", c[nav.ViaBottom],
			"via_left", c[nav.ViaLeft],
			"via_right", c[nav.ViaRight],
		)
	}
}

// others returns every snake except i, reusing a per-snake buffer.
func (s *Simulation) others(i int) []game.Snake {
	if len(s.state.Snakes) == 1 {
		return nil
	}
	buf := s.scratch[i][:0]
	for j := range s.state.Snakes {
		if j != i {
			buf = append(buf, s.state.Snakes[j])
		}
	}
	s.scratch[i] = buf
	return buf
}

// othersPredicted is next without entry i, or nil for a lone snake.
func othersPredicted(next []game.Point, i int) []game.Point {
	if len(next) < 2 {
		return nil
	}
	out := make([]game.Point, 0, len(next)-1)
	for j, p := range next {
		if j != i {
			out = append(out, p)
		}
	}
	return out
}

// Tick runs one simulation step. It returns ErrFinished once a previous tick
// ended the run.
func (s *Simulation) Tick() (TickResult, error) {
	if s.finished {
		return s.lastTick, ErrFinished
	}

	snakes := s.state.Snakes
	steps := make([]AgentStep, len(snakes))
	dirs := make([]game.Direction, len(snakes))

	// Plan every snake from the same snapshot before anything moves. The
	// first pass fixes where each head is heading this tick; the second
	// repairs proposals that run into a body or one of those heads.
	next := make([]game.Point, len(snakes))
	for i := range snakes {
		if !s.routers[i].Active() {
			return TickResult{}, fmt.Errorf("tick %d: snake %s: %w", s.state.Turn+1, snakes[i].ID, ErrNoLeg)
		}
		d := s.planners[i].Propose(snakes[i].Head(), s.routers[i].Target(), snakes[i].Heading)
		next[i] = nav.PredictHead(s.state.Board, &snakes[i], d)
	}
	for i := range snakes {
		r := s.routers[i]
		dec := s.planners[i].ChooseDirection(s.state.Board, &snakes[i], r.Target(), s.others(i), othersPredicted(next, i))
		dirs[i] = dec.Chosen
		steps[i] = AgentStep{
			ID:       snakes[i].ID,
			Class:    r.Class(),
			Target:   dec.Target,
			Proposed: dec.Proposed,
			Chosen:   dec.Chosen,
			Fallback: dec.Fallback,
			NoSafe:   dec.NoSafe,
		}
		if dec.NoSafe {
			s.log.Warn("no safe direction",
				"snake", snakes[i].ID,
				"turn", s.state.Turn,
				"head", snakes[i].Head().String(),
				"target", dec.Target.String(),
				"keeping", dec.Proposed.String(),
			)
		}
		s.prevTails[i] = snakes[i].Body[len(snakes[i].Body)-1]
	}

	goalIndex := s.state.Goals.Index()
	results, outcome, err := rules.Step(s.state, dirs)
	if err != nil {
		return TickResult{}, fmt.Errorf("turn %d: %w", s.state.Turn, err)
	}

	res := TickResult{Turn: s.state.Turn, Agents: steps, Chasing: goalIndex, GoalIndex: -1}
	for i, mr := range results {
		st := &steps[i]
		st.Head = mr.Head
		st.AteGoal = mr.AteGoal && outcome.EatenBy == i
		st.Collided = mr.Collided
		st.CrossedPortal = mr.CrossedPortal
		st.Cause = mr.Cause

		stats := &s.stats[i]
		stats.Steps++
		if st.Fallback {
			stats.Fallbacks++
		}
		if st.NoSafe {
			stats.NoSafe++
		}
		if mr.CrossedPortal {
			stats.Crossings++
			s.routers[i].MarkCrossed()
		}
		if mr.Collided {
			stats.Collided = true
			res.Collided = true
			s.log.Info("collision",
				"snake", st.ID,
				"turn", res.Turn,
				"head", mr.Head.String(),
				"cause", mr.Cause.String(),
			)
		}
	}

	s.paintTick(outcome)

	if outcome.EatenBy >= 0 {
		res.AteGoal = true
		res.GoalIndex = goalIndex
		s.stats[outcome.EatenBy].Goals++
		s.legTicks = append(s.legTicks, float64(s.state.Turn-s.legStart))
		s.log.Info("goal reached",
			"snake", s.state.Snakes[outcome.EatenBy].ID,
			"turn", res.Turn,
			"goal_index", goalIndex,
			"goal", outcome.Consumed.String(),
			"leg_ticks", s.state.Turn-s.legStart,
		)
		if outcome.Won {
			res.Won = !res.Collided
		} else {
			s.beginLegs()
		}
	}

	if rules.IsTerminal(s.state, results) {
		s.finished = true
	}
	s.lastTick = res
	return res, nil
}

// paintTick emits the cell changes of the last move: vacated tails revert to
// whatever the board holds there, necks become body, heads are drawn last.
func (s *Simulation) paintTick(outcome rules.GoalOutcome) {
	if s.sink == nil {
		return
	}
	b := s.state.Board
	for _, tail := range s.prevTails {
		if s.occupied(tail) || !b.InBounds(tail) {
			continue
		}
		s.sink.OnCellChanged(tail, b.CellAt(tail).Render())
	}
	if outcome.HasNext && !s.occupied(outcome.Next) {
		s.sink.OnCellChanged(outcome.Next, game.RenderGoal)
	}
	for i := range s.state.Snakes {
		body := s.state.Snakes[i].Body
		if len(body) > 1 {
			s.sink.OnCellChanged(body[1], game.RenderBody)
		}
		s.sink.OnCellChanged(body[0], game.RenderHead)
	}
}

func (s *Simulation) occupied(p game.Point) bool {
	for i := range s.state.Snakes {
		if s.state.Snakes[i].Occupies(p) {
			return true
		}
	}
	return false
}

// PaintAll emits every non-empty cell of the current state, board first and
// snakes on top. Displays call it once before the first tick.
func (s *Simulation) PaintAll() {
	if s.sink == nil {
		return
	}
	b := s.state.Board
	for y := 1; y <= b.Height; y++ {
		for x := 1; x <= b.Width; x++ {
			p := game.Point{X: x, Y: y}
			if k := b.CellAt(p).Render(); k != game.RenderEmpty {
				s.sink.OnCellChanged(p, k)
			}
		}
	}
	for i := range s.state.Snakes {
		body := s.state.Snakes[i].Body
		for j := len(body) - 1; j >= 0; j-- {
			k := game.RenderBody
			if j == 0 {
				k = game.RenderHead
			}
			s.sink.OnCellChanged(body[j], k)
		}
	}
}

// State returns a deep copy of the current state.
func (s *Simulation) State() *game.GameState { return s.state.Clone() }

// Turn is the number of ticks run so far.
func (s *Simulation) Turn() int { return s.state.Turn }

// Finished reports whether a tick has ended the run.
func (s *Simulation) Finished() bool { return s.finished }

// Router exposes snake i's routing state for inspection.
func (s *Simulation) Router(i int) *nav.Router { return s.routers[i] }

// Stats returns a copy of the per-snake counters.
func (s *Simulation) Stats() []AgentStats {
	out := make([]AgentStats, len(s.stats))
	copy(out, s.stats)
	return out
}
