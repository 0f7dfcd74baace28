// Package config loads run configuration and board presets.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brensch/snekgrid/game"
	"github.com/brensch/snekgrid/nav"
	"github.com/brensch/snekgrid/sim"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultSnakeLength is used when a snake omits length.
const DefaultSnakeLength = 10

// Config holds everything a snakesim run reads from YAML.
type Config struct {
	Preset  string            `yaml:"preset"`
	Run     RunConfig         `yaml:"run"`
	Log     LogConfig         `yaml:"log"`
	Presets map[string]Preset `yaml:"presets"`
}

// RunConfig controls pacing limits and outputs.
type RunConfig struct {
	MaxTurns   int    `yaml:"max_turns"`  // 0 = unlimited
	OutDir     string `yaml:"out_dir"`    // "" = write nothing
	Trajectory bool   `yaml:"trajectory"` // parquet ticks under out_dir
	Summary    bool   `yaml:"summary"`    // runs.csv under out_dir
	Events     bool   `yaml:"events"`     // zstd JSONL under out_dir/events
	Listen     string `yaml:"listen"`     // stream address, "" = off
}

type LogConfig struct {
	Format string `yaml:"format"` // text, json or pretty
	Level  string `yaml:"level"`
}

// Point is a board coordinate as written in YAML: {x: 3, y: 4}.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

func (p Point) game() game.Point { return game.Point{X: p.X, Y: p.Y} }

// Preset is one board layout with its snakes.
type Preset struct {
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	Delay        time.Duration `yaml:"delay"`
	ObstacleSide int           `yaml:"obstacle_side"`
	Obstacles    []Point       `yaml:"obstacles"`
	Goals        []Point       `yaml:"goals"`
	Snakes       []SnakeConfig `yaml:"snakes"`
}

// SnakeConfig names heading and policy as strings so typos surface with
// the snake they belong to.
type SnakeConfig struct {
	ID      string `yaml:"id"`
	Head    Point  `yaml:"head"`
	Length  int    `yaml:"length"`
	Heading string `yaml:"heading"`
	Policy  string `yaml:"policy"`
}

// Load reads the embedded defaults, then decodes the file at path (if any)
// over them.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if cfg.Run.MaxTurns < 0 {
		return nil, fmt.Errorf("run.max_turns %d must not be negative", cfg.Run.MaxTurns)
	}
	return cfg, nil
}

// PresetNames lists the available presets in sorted order.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named preset, or the configured default when name is
// empty.
func (c *Config) Lookup(name string) (Preset, error) {
	if name == "" {
		name = c.Preset
	}
	p, ok := c.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (have %v)", name, c.PresetNames())
	}
	return p, nil
}

// Setup converts the preset into a sim.Setup. Board-level checks (bounds,
// obstacles on portal gaps, overlaps) are left to sim.New.
func (p Preset) Setup() (sim.Setup, error) {
	if p.Delay < 0 {
		return sim.Setup{}, fmt.Errorf("delay %s must not be negative", p.Delay)
	}
	if len(p.Obstacles) > 0 && p.ObstacleSide < 1 {
		return sim.Setup{}, fmt.Errorf("obstacle_side %d must be positive", p.ObstacleSide)
	}

	setup := sim.Setup{
		Width:     p.Width,
		Height:    p.Height,
		Obstacles: make([]game.Square, len(p.Obstacles)),
		Goals:     make([]game.Point, len(p.Goals)),
		Snakes:    make([]sim.SnakeSetup, len(p.Snakes)),
	}
	for i, o := range p.Obstacles {
		setup.Obstacles[i] = game.Square{X: o.X, Y: o.Y, Side: p.ObstacleSide}
	}
	for i, g := range p.Goals {
		setup.Goals[i] = g.game()
	}

	for i, sc := range p.Snakes {
		ss := sim.SnakeSetup{ID: sc.ID, Head: sc.Head.game(), Length: sc.Length}
		if ss.Length == 0 {
			ss.Length = DefaultSnakeLength
		}

		heading := sc.Heading
		if heading == "" {
			heading = game.Right.String()
		}
		d, err := game.ParseDirection(heading)
		if err != nil {
			return sim.Setup{}, fmt.Errorf("snake %d: %w", i+1, err)
		}
		ss.Heading = d

		if sc.Policy != "" {
			pol, err := nav.ParseAxisPolicy(sc.Policy)
			if err != nil {
				return sim.Setup{}, fmt.Errorf("snake %d: %w", i+1, err)
			}
			ss.Policy = pol
		}
		setup.Snakes[i] = ss
	}
	return setup, nil
}
