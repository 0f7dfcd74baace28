package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/brensch/snekgrid/game"
	"github.com/brensch/snekgrid/sim"
)

// RecorderOptions choose which outputs a Recorder writes under Dir.
type RecorderOptions struct {
	Dir    string
	RunID  string
	Preset string

	Trajectory bool
	Summary    bool
	Events     bool

	Logger *slog.Logger
}

// Recorder is a sim.Observer persisting a run: per-tick parquet rows,
// a runs.csv line and the compressed event log. Write errors on the tick
// path are logged and the run continues; the trajectory finalize error is
// kept and reported by Err.
type Recorder struct {
	opts    RecorderOptions
	log     *slog.Logger
	traj    *TrajectoryWriter
	runs    *RunLog
	events  *EventWriter
	started time.Time
	snakes  int

	trajPath string
	err      error
}

func NewRecorder(opts RecorderOptions) (*Recorder, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("recorder: output dir is required")
	}
	if opts.RunID == "" {
		opts.RunID = fmt.Sprintf("run_%d", time.Now().UnixNano())
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{opts: opts, log: logger}
	if opts.Trajectory {
		tw, err := NewTrajectoryWriter(opts.Dir, opts.RunID)
		if err != nil {
			return nil, fmt.Errorf("recorder: %w", err)
		}
		r.traj = tw
	}
	if opts.Summary {
		rl, err := OpenRunLog(filepath.Join(opts.Dir, "runs.csv"))
		if err != nil {
			if r.traj != nil {
				_, _, _ = r.traj.Finalize()
			}
			return nil, fmt.Errorf("recorder: %w", err)
		}
		r.runs = rl
	}
	if opts.Events {
		r.events = NewEventWriter(filepath.Join(opts.Dir, "events"), "events")
	}
	return r, nil
}

func (r *Recorder) RunID() string { return r.opts.RunID }

// TrajectoryPath is the finalized parquet path, set after OnFinish.
func (r *Recorder) TrajectoryPath() string { return r.trajPath }

// Err reports a failure to finalize the trajectory or append the summary.
func (r *Recorder) Err() error { return r.err }

func (r *Recorder) OnStart(state *game.GameState) {
	r.started = time.Now()
	r.snakes = len(state.Snakes)
}

func (r *Recorder) OnTick(state *game.GameState, res sim.TickResult) {
	if r.traj != nil {
		if err := r.traj.WriteRows(TickRows(r.opts.RunID, state, res)); err != nil {
			r.log.Error("trajectory write failed", "turn", res.Turn, "error", err)
		}
	}
	if r.events != nil {
		if err := r.events.Write(tickEvent(r.opts.RunID, res)); err != nil {
			r.log.Error("event write failed", "turn", res.Turn, "error", err)
		}
	}
}

func (r *Recorder) OnFinish(res sim.RunResult) {
	if r.traj != nil {
		path, rows, err := r.traj.Finalize()
		if err != nil {
			r.err = fmt.Errorf("finalize trajectory: %w", err)
			r.log.Error("trajectory finalize failed", "error", err)
		} else if rows > 0 {
			r.trajPath = path
			r.log.Info("trajectory written", "path", path, "rows", rows)
		}
	}

	if r.events != nil {
		done := TickEvent{RunID: r.opts.RunID, Turn: res.Turns, Ate: -1, Done: true, Outcome: res.Outcome.String()}
		if err := r.events.Write(done); err != nil {
			r.log.Error("event write failed", "error", err)
		}
		if err := r.events.Close(); err != nil {
			r.log.Error("event log close failed", "error", err)
		}
	}

	if r.runs != nil {
		if err := r.runs.Append(r.record(res)); err != nil && r.err == nil {
			r.err = err
			r.log.Error("run summary write failed", "error", err)
		}
		_ = r.runs.Close()
	}
}

func (r *Recorder) record(res sim.RunResult) RunRecord {
	rec := RunRecord{
		RunID:      r.opts.RunID,
		StartedAt:  r.started.UTC().Format(time.RFC3339),
		Preset:     r.opts.Preset,
		Snakes:     r.snakes,
		Outcome:    res.Outcome.String(),
		Turns:      res.Turns,
		GoalsEaten: res.GoalsEaten,
		GoalsTotal: res.GoalsTotal,
		LegMean:    res.Legs.Mean,
		LegStdDev:  res.Legs.StdDev,
		ElapsedMs:  res.Elapsed.Milliseconds(),
		Trajectory: r.trajPath,
	}
	for _, a := range res.Agents {
		rec.Fallbacks += a.Fallbacks
		rec.NoSafe += a.NoSafe
		rec.Crossings += a.Crossings
	}
	return rec
}

func tickEvent(runID string, res sim.TickResult) TickEvent {
	ev := TickEvent{
		RunID:  runID,
		Turn:   res.Turn,
		Goal:   res.Chasing,
		Ate:    res.GoalIndex,
		Done:   res.Done(),
		Agents: make([]AgentEvent, 0, len(res.Agents)),
	}
	if res.Won {
		ev.Outcome = sim.OutcomeWon.String()
	} else if res.Collided {
		ev.Outcome = sim.OutcomeCollided.String()
	}
	for _, a := range res.Agents {
		ae := AgentEvent{
			ID:       a.ID,
			Class:    a.Class.String(),
			Chosen:   a.Chosen.String(),
			HeadX:    a.Head.X,
			HeadY:    a.Head.Y,
			Fallback: a.Fallback,
			NoSafe:   a.NoSafe,
			Crossed:  a.CrossedPortal,
			Collided: a.Collided,
		}
		if a.Collided {
			ae.Cause = a.Cause.String()
		}
		ev.Agents = append(ev.Agents, ae)
	}
	return ev
}
