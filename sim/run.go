package sim

import (
	"context"
	"time"

	"github.com/brensch/snekgrid/game"
)

// CellSink receives display updates. Implementations must not block.
type CellSink interface {
	OnCellChanged(p game.Point, kind game.RenderKind)
}

// StopSource is polled once per tick; true ends the run cleanly.
type StopSource interface {
	StopRequested() bool
}

// StopFunc adapts a plain function to StopSource.
type StopFunc func() bool

func (f StopFunc) StopRequested() bool { return f() }

// Observer is notified around a run. States handed to an observer are copies
// it may keep.
type Observer interface {
	OnStart(state *game.GameState)
	OnTick(state *game.GameState, res TickResult)
	OnFinish(res RunResult)
}

// Outcome is why a run ended.
type Outcome uint8

const (
	OutcomeWon Outcome = iota
	OutcomeCollided
	OutcomeStopped
	OutcomeCancelled
	OutcomeTurnLimit
)

var outcomeNames = [...]string{"won", "collided", "stopped", "cancelled", "turn_limit"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// RunOptions control pacing and termination of Run.
type RunOptions struct {
	// Delay between ticks. Zero runs as fast as possible.
	Delay time.Duration
	// MaxTurns stops the run after that many ticks when > 0.
	MaxTurns  int
	Stop      StopSource
	Observers []Observer
}

// RunResult is handed to observers and returned from Run.
type RunResult struct {
	Outcome    Outcome
	Turns      int
	Elapsed    time.Duration
	GoalsEaten int
	GoalsTotal int
	Agents     []AgentStats
	Legs       LegStats
}

// Run ticks until a snake collides, the last goal is eaten, the stop source
// fires, ctx is cancelled or the turn limit is hit. Only a failure inside a
// tick is returned as an error.
func (s *Simulation) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	start := time.Now()

	s.PaintAll()
	if len(opts.Observers) > 0 {
		snap := s.state.Clone()
		for _, o := range opts.Observers {
			o.OnStart(snap)
		}
	}

	var tick <-chan time.Time
	if opts.Delay > 0 {
		ticker := time.NewTicker(opts.Delay)
		defer ticker.Stop()
		tick = ticker.C
	}

	outcome := OutcomeStopped
loop:
	for {
		select {
		case <-ctx.Done():
			outcome = OutcomeCancelled
			break loop
		default:
		}
		if opts.Stop != nil && opts.Stop.StopRequested() {
			outcome = OutcomeStopped
			break loop
		}
		if opts.MaxTurns > 0 && s.state.Turn >= opts.MaxTurns {
			outcome = OutcomeTurnLimit
			break loop
		}

		res, err := s.Tick()
		if err != nil {
			return s.result(OutcomeStopped, start), err
		}

		if len(opts.Observers) > 0 {
			snap := s.state.Clone()
			for _, o := range opts.Observers {
				o.OnTick(snap, res)
			}
		}

		if res.Collided {
			outcome = OutcomeCollided
			break loop
		}
		if res.Won {
			outcome = OutcomeWon
			break loop
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				outcome = OutcomeCancelled
				break loop
			case <-tick:
			}
		}
	}

	result := s.result(outcome, start)
	s.log.Info("run finished",
		"outcome", result.Outcome.String(),
		"turns", result.Turns,
		"goals", result.GoalsEaten,
		"goals_total", result.GoalsTotal,
		"elapsed", result.Elapsed.String(),
		"leg_mean", result.Legs.Mean,
	)
	for _, o := range opts.Observers {
		o.OnFinish(result)
	}
	return result, nil
}

func (s *Simulation) result(outcome Outcome, start time.Time) RunResult {
	return RunResult{
		Outcome:    outcome,
		Turns:      s.state.Turn,
		Elapsed:    time.Since(start),
		GoalsEaten: s.state.Goals.Index(),
		GoalsTotal: s.state.Goals.Len(),
		Agents:     s.Stats(),
		Legs:       summariseLegs(s.legTicks),
	}
}
