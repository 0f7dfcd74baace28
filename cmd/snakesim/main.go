package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/snekgrid/config"
	"github.com/brensch/snekgrid/logging"
	"github.com/brensch/snekgrid/sim"
	"github.com/brensch/snekgrid/store"
	"github.com/brensch/snekgrid/stream"
	"github.com/brensch/snekgrid/tui"
)

func main() {
	configPath := flag.String("config", getEnvOrDefault("SNAKESIM_CONFIG", ""), "YAML config decoded over the built-in defaults")
	presetName := flag.String("preset", getEnvOrDefault("SNAKESIM_PRESET", ""), "Board preset (default from config)")
	useTUI := flag.Bool("tui", getEnvBoolOrDefault("SNAKESIM_TUI", false), "Show the live terminal view; q stops the run")
	delay := flag.Duration("delay", getEnvDurationOrDefault("SNAKESIM_DELAY", 0), "Delay between ticks (overrides the preset)")
	outDir := flag.String("out-dir", getEnvOrDefault("SNAKESIM_OUT_DIR", ""), "Directory for trajectory, runs.csv and event log")
	listen := flag.String("listen", getEnvOrDefault("SNAKESIM_LISTEN", ""), "Serve the stream on this address, e.g. :8080")
	maxTurns := flag.Int("max-turns", getEnvIntOrDefault("SNAKESIM_MAX_TURNS", 0), "Stop after this many ticks (0 = no limit)")
	logFormat := flag.String("log-format", getEnvOrDefault("SNAKESIM_LOG_FORMAT", ""), "Log format: text, json or pretty")
	logFile := flag.String("log-file", getEnvOrDefault("SNAKESIM_LOG_FILE", ""), "Write logs here instead of stderr (defaults to snakesim.log with -tui)")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *outDir != "" {
		cfg.Run.OutDir = *outDir
	}
	if *listen != "" {
		cfg.Run.Listen = *listen
	}
	if set["max-turns"] || *maxTurns > 0 {
		cfg.Run.MaxTurns = *maxTurns
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	name := *presetName
	if name == "" {
		name = cfg.Preset
	}
	preset, err := cfg.Lookup(name)
	if err != nil {
		log.Fatalf("Failed to pick preset: %v", err)
	}
	if set["delay"] || *delay > 0 {
		preset.Delay = *delay
	}

	var logOut io.Writer = os.Stderr
	if *logFile == "" && *useTUI {
		*logFile = "snakesim.log"
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Bad log level: %v", err)
	}
	logger, err := logging.New(logOut, cfg.Log.Format, level)
	if err != nil {
		log.Fatalf("Bad log format: %v", err)
	}
	slog.SetDefault(logger)

	setup, err := preset.Setup()
	if err != nil {
		log.Fatalf("Invalid preset %s: %v", name, err)
	}
	setup.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := fmt.Sprintf("%s_%s", name, time.Now().UTC().Format("20060102T150405"))
	opts := sim.RunOptions{Delay: preset.Delay, MaxTurns: cfg.Run.MaxTurns}

	var hub *stream.Hub
	if cfg.Run.Listen != "" {
		hub = stream.NewHub(runID, logger)
		setup.Sink = hub
		opts.Observers = append(opts.Observers, hub)
	}

	var rec *store.Recorder
	if cfg.Run.OutDir != "" && (cfg.Run.Trajectory || cfg.Run.Summary || cfg.Run.Events) {
		rec, err = store.NewRecorder(store.RecorderOptions{
			Dir:        cfg.Run.OutDir,
			RunID:      runID,
			Preset:     name,
			Trajectory: cfg.Run.Trajectory,
			Summary:    cfg.Run.Summary,
			Events:     cfg.Run.Events,
			Logger:     logger,
		})
		if err != nil {
			log.Fatalf("Failed to open outputs: %v", err)
		}
		opts.Observers = append(opts.Observers, rec)
	}

	var viewer *tui.Viewer
	if *useTUI {
		viewer = tui.NewViewer()
		opts.Stop = viewer
		opts.Observers = append(opts.Observers, viewer)
	}

	s, err := sim.New(setup)
	if err != nil {
		log.Fatalf("Failed to set up simulation: %v", err)
	}

	if hub != nil {
		go func() {
			if err := hub.Serve(ctx, cfg.Run.Listen); err != nil {
				logger.Error("stream server stopped", "error", err)
			}
		}()
	}

	logger.Info("starting run",
		"run_id", runID,
		"preset", name,
		"board", fmt.Sprintf("%dx%d", setup.Width, setup.Height),
		"snakes", len(setup.Snakes),
		"goals", len(setup.Goals),
		"delay", opts.Delay.String(),
	)

	var res sim.RunResult
	if viewer == nil {
		res, err = s.Run(ctx, opts)
		if err != nil {
			log.Fatalf("Run failed: %v", err)
		}
	} else {
		type outcome struct {
			res sim.RunResult
			err error
		}
		done := make(chan outcome, 1)
		go func() {
			r, err := s.Run(ctx, opts)
			done <- outcome{r, err}
		}()
		if _, err := viewer.Program(ctx).Run(); err != nil {
			logger.Warn("terminal view exited", "error", err)
		}
		// Quitting the view sets the stop flag; the run ends on its next tick.
		o := <-done
		if o.err != nil {
			log.Fatalf("Run failed: %v", o.err)
		}
		res = o.res
	}

	if rec != nil && rec.Err() != nil {
		log.Printf("Output error: %v", rec.Err())
	}

	fmt.Printf("%s: %s after %d turns, goals %d/%d, leg mean %.1f (sd %.1f), %s\n",
		runID, res.Outcome, res.Turns, res.GoalsEaten, res.GoalsTotal, res.Legs.Mean, res.Legs.StdDev, res.Elapsed.Round(time.Millisecond))
	for _, a := range res.Agents {
		fmt.Printf("  %-8s steps=%d goals=%d fallbacks=%d no_safe=%d crossings=%d collided=%v\n",
			a.ID, a.Steps, a.Goals, a.Fallbacks, a.NoSafe, a.Crossings, a.Collided)
	}
	if rec != nil && rec.TrajectoryPath() != "" {
		fmt.Printf("  trajectory: %s\n", rec.TrajectoryPath())
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
