// Package tui is a bubbletea live view of a run. The viewer doubles as the
// run's stop source: pressing q ends the simulation on its next tick.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekgrid/game"
	"github.com/brensch/snekgrid/sim"
)

// Update is one frame handed from the simulation to the view.
type Update struct {
	Turn    int
	Board   string
	Agents  []string
	Outcome string
	Done    bool
}

// Viewer implements sim.Observer and sim.StopSource.
type Viewer struct {
	updates chan Update
	stop    atomic.Bool
	started atomic.Int64 // unix nanos, set by OnStart
}

func NewViewer() *Viewer {
	v := &Viewer{updates: make(chan Update, 1)}
	v.started.Store(time.Now().UnixNano())
	return v
}

// StopRequested reports whether the user asked to quit.
func (v *Viewer) StopRequested() bool { return v.stop.Load() }

// push keeps only the newest frame; the run never waits on the terminal.
func (v *Viewer) push(u Update) {
	select {
	case v.updates <- u:
		return
	default:
	}
	select {
	case <-v.updates:
	default:
	}
	v.updates <- u
}

func (v *Viewer) OnStart(state *game.GameState) {
	v.started.Store(time.Now().UnixNano())
	v.push(Update{Turn: state.Turn, Board: game.Dump(state)})
}

func (v *Viewer) OnTick(state *game.GameState, res sim.TickResult) {
	u := Update{Turn: res.Turn, Board: game.Dump(state), Agents: agentLines(res.Agents)}
	if res.Won {
		u.Outcome = sim.OutcomeWon.String()
	} else if res.Collided {
		u.Outcome = sim.OutcomeCollided.String()
	}
	v.push(u)
}

func (v *Viewer) OnFinish(res sim.RunResult) {
	v.push(Update{
		Turn:    res.Turns,
		Outcome: res.Outcome.String(),
		Done:    true,
		Agents: []string{fmt.Sprintf("goals %d/%d  legs mean %.1f sd %.1f  elapsed %s",
			res.GoalsEaten, res.GoalsTotal, res.Legs.Mean, res.Legs.StdDev, res.Elapsed.Round(time.Millisecond))},
	})
}

func agentLines(steps []sim.AgentStep) []string {
	lines := make([]string, 0, len(steps))
	for _, a := range steps {
		line := fmt.Sprintf("%-8s %-10s -> %-8v %-5s", a.ID, a.Class, a.Target, a.Chosen)
		switch {
		case a.Collided:
			line += " collided (" + a.Cause.String() + ")"
		case a.NoSafe:
			line += " no safe move"
		case a.Fallback:
			line += " fallback from " + a.Proposed.String()
		}
		if a.CrossedPortal {
			line += " wrapped"
		}
		lines = append(lines, line)
	}
	return lines
}

// Program builds the bubbletea program for this viewer.
func (v *Viewer) Program(ctx context.Context, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	return tea.NewProgram(newModel(v), opts...)
}

type model struct {
	viewer  *Viewer
	last    Update
	elapsed time.Duration
	done    bool
}

func newModel(v *Viewer) model {
	return model{viewer: v}
}

type clockMsg time.Time

func clockCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

func waitForUpdate(updates chan Update) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.viewer.updates), clockCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.viewer.stop.Store(true)
			return m, tea.Quit
		}
	case clockMsg:
		if !m.done {
			m.elapsed = time.Since(time.Unix(0, m.viewer.started.Load()))
		}
		return m, clockCmd()
	case Update:
		if msg.Done {
			m.done = true
			// The finish frame carries no board; keep the last one.
			msg.Board = m.last.Board
		}
		m.last = msg
		return m, waitForUpdate(m.viewer.updates)
	}
	return m, nil
}

func (m model) View() string {
	var sb strings.Builder
	if m.last.Board == "" {
		sb.WriteString("waiting for the first frame...\n")
	} else {
		sb.WriteString(m.last.Board)
	}
	sb.WriteByte('\n')
	for _, line := range m.last.Agents {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	if m.done {
		fmt.Fprintf(&sb, "\nRun finished: %s after %d turns.\n", m.last.Outcome, m.last.Turn)
		sb.WriteString("Press q to exit.\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "\nElapsed: %s\n", m.elapsed.Round(time.Second))
	sb.WriteString("Press q to stop.\n")
	return sb.String()
}
