package stream

import (
	"github.com/brensch/snekgrid/game"
	"github.com/brensch/snekgrid/sim"
)

// XY is a board coordinate on the wire.
type XY struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func xy(p game.Point) XY { return XY{X: p.X, Y: p.Y} }

// Cell is one painted cell. Kind is a game.RenderKind name.
type Cell struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Kind string `json:"kind"`
}

type SnakeFrame struct {
	ID      string `json:"id"`
	Heading string `json:"heading"`
	Body    []XY   `json:"body"`
	Class   string `json:"class,omitempty"`
	Target  *XY    `json:"target,omitempty"`
	NoSafe  bool   `json:"no_safe,omitempty"`
}

// Frame is one message on /ws. A keyframe carries every non-empty cell; the
// others carry only the cells that changed since the previous frame.
type Frame struct {
	Type    string       `json:"type"` // "keyframe", "tick" or "finish"
	Turn    int          `json:"turn"`
	Width   int          `json:"width"`
	Height  int          `json:"height"`
	Chasing int          `json:"chasing"`
	Eaten   int          `json:"eaten"`
	Goals   int          `json:"goals"`
	Goal    *XY          `json:"goal,omitempty"`
	Cells   []Cell       `json:"cells"`
	Snakes  []SnakeFrame `json:"snakes"`
	Outcome string       `json:"outcome,omitempty"`
}

// Info is served on GET /.
type Info struct {
	Name     string   `json:"name"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Snakes   []string `json:"snakes"`
	Goals    int      `json:"goals"`
	Turn     int      `json:"turn"`
	Clients  int      `json:"clients"`
	Finished bool     `json:"finished"`
	Outcome  string   `json:"outcome,omitempty"`
}

func snakeFrames(state *game.GameState, steps []sim.AgentStep) []SnakeFrame {
	out := make([]SnakeFrame, len(state.Snakes))
	for i := range state.Snakes {
		s := &state.Snakes[i]
		sf := SnakeFrame{ID: s.ID, Heading: s.Heading.String(), Body: make([]XY, len(s.Body))}
		for j, p := range s.Body {
			sf.Body[j] = xy(p)
		}
		if i < len(steps) {
			t := xy(steps[i].Target)
			sf.Class = steps[i].Class.String()
			sf.Target = &t
			sf.NoSafe = steps[i].NoSafe
		}
		out[i] = sf
	}
	return out
}

func currentGoal(state *game.GameState) *XY {
	if g, ok := state.Goals.Current(); ok {
		p := xy(g)
		return &p
	}
	return nil
}
