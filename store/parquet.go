package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/snekgrid/game"
	"github.com/brensch/snekgrid/sim"
)

// TickSchema is stored in every trajectory file's key/value metadata.
const TickSchema = "snake_tick_v1"

// TickRow is one snake's step during one tick.
//
// Goal is the index of the goal being chased when the tick started, so
// grouping by (SnakeID, Goal) yields the legs of a run. Directions are stored
// by name: up, down, left, right.
type TickRow struct {
	RunID   string `parquet:"run_id,dict"`
	Turn    int32  `parquet:"turn"`
	SnakeID string `parquet:"snake_id,dict"`
	Goal    int32  `parquet:"goal"`

	PathClass string `parquet:"path_class,dict"`
	TargetX   int32  `parquet:"target_x"`
	TargetY   int32  `parquet:"target_y"`
	Proposed  string `parquet:"proposed,dict"`
	Chosen    string `parquet:"chosen,dict"`
	Fallback  bool   `parquet:"fallback"`
	NoSafe    bool   `parquet:"no_safe"`

	HeadX    int32  `parquet:"head_x"`
	HeadY    int32  `parquet:"head_y"`
	AteGoal  bool   `parquet:"ate_goal"`
	Crossed  bool   `parquet:"crossed"`
	Collided bool   `parquet:"collided"`
	Cause    string `parquet:"cause,dict"`

	BodyX []int32 `parquet:"body_x"`
	BodyY []int32 `parquet:"body_y"`
}

// TickRows flattens one tick into a row per snake. state must be the state
// after the tick.
func TickRows(runID string, state *game.GameState, res sim.TickResult) []TickRow {
	rows := make([]TickRow, 0, len(res.Agents))
	for i, a := range res.Agents {
		row := TickRow{
			RunID:     runID,
			Turn:      int32(res.Turn),
			SnakeID:   a.ID,
			Goal:      int32(res.Chasing),
			PathClass: a.Class.String(),
			TargetX:   int32(a.Target.X),
			TargetY:   int32(a.Target.Y),
			Proposed:  a.Proposed.String(),
			Chosen:    a.Chosen.String(),
			Fallback:  a.Fallback,
			NoSafe:    a.NoSafe,
			HeadX:     int32(a.Head.X),
			HeadY:     int32(a.Head.Y),
			AteGoal:   a.AteGoal,
			Crossed:   a.CrossedPortal,
			Collided:  a.Collided,
			Cause:     a.Cause.String(),
		}
		if state != nil && i < len(state.Snakes) {
			body := state.Snakes[i].Body
			row.BodyX = make([]int32, 0, len(body))
			row.BodyY = make([]int32, 0, len(body))
			for _, p := range body {
				row.BodyX = append(row.BodyX, int32(p.X))
				row.BodyY = append(row.BodyY, int32(p.Y))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// TrajectoryWriter streams TickRows into outDir/tmp and moves the finished
// file into outDir on Finalize, so readers never see a partial file.
type TrajectoryWriter struct {
	outDir  string
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[TickRow]

	rows int
}

func NewTrajectoryWriter(outDir, runID string) (*TrajectoryWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}
	if runID == "" {
		runID = fmt.Sprintf("run_%d", time.Now().UnixNano())
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("ticks_%s.parquet", runID)
	tmpPath := filepath.Join(tmpDir, name)
	_ = os.Remove(tmpPath)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[TickRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("body_x"),
		parquet.SkipPageBounds("body_y"),
	)
	w.SetKeyValueMetadata("schema", TickSchema)

	return &TrajectoryWriter{
		outDir:  absOut,
		tmpPath: tmpPath,
		outPath: filepath.Join(absOut, name),
		file:    f,
		writer:  w,
	}, nil
}

func (t *TrajectoryWriter) OutPath() string { return t.outPath }
func (t *TrajectoryWriter) Rows() int       { return t.rows }

func (t *TrajectoryWriter) WriteRows(rows []TickRow) error {
	if t.writer == nil || t.file == nil {
		return fmt.Errorf("trajectory writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := t.writer.Write(rows); err != nil {
		return err
	}
	t.rows += len(rows)
	return nil
}

// Finalize closes the parquet writer and moves the file out of tmp/.
// If no rows were written the tmp file is removed and outPath is empty.
func (t *TrajectoryWriter) Finalize() (outPath string, rows int, err error) {
	if t.writer == nil && t.file == nil {
		return "", 0, nil
	}

	var closeErr error
	if t.writer != nil {
		closeErr = t.writer.Close()
		t.writer = nil
	}
	var fileErr error
	if t.file != nil {
		_ = t.file.Sync()
		fileErr = t.file.Close()
		t.file = nil
	}
	if closeErr != nil {
		_ = os.Remove(t.tmpPath)
		return "", 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		_ = os.Remove(t.tmpPath)
		return "", 0, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if t.rows == 0 {
		_ = os.Remove(t.tmpPath)
		return "", 0, nil
	}
	if err := os.Rename(t.tmpPath, t.outPath); err != nil {
		return "", 0, fmt.Errorf("rename parquet: %w", err)
	}
	return t.outPath, t.rows, nil
}

// ReadTickParquet loads every row of a trajectory file. Files whose schema
// metadata is missing or different are rejected.
func ReadTickParquet(path string) ([]TickRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	if schema, ok := pf.Lookup("schema"); !ok || schema != TickSchema {
		return nil, fmt.Errorf("%s: schema %q, want %q", path, schema, TickSchema)
	}

	reader := parquet.NewGenericReader[TickRow](pf)
	defer reader.Close()

	rows := make([]TickRow, 0, reader.NumRows())
	for {
		// Fresh buffer each pass: the reader may reuse slice storage.
		buf := make([]TickRow, 256)
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
		if n == 0 {
			break
		}
	}
	return rows, nil
}
