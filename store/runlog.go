package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
)

// RunRecord is one line of runs.csv.
type RunRecord struct {
	RunID      string  `csv:"run_id"`
	StartedAt  string  `csv:"started_at"`
	Preset     string  `csv:"preset"`
	Snakes     int     `csv:"snakes"`
	Outcome    string  `csv:"outcome"`
	Turns      int     `csv:"turns"`
	GoalsEaten int     `csv:"goals_eaten"`
	GoalsTotal int     `csv:"goals_total"`
	LegMean    float64 `csv:"leg_mean"`
	LegStdDev  float64 `csv:"leg_stddev"`
	Fallbacks  int     `csv:"fallbacks"`
	NoSafe     int     `csv:"no_safe"`
	Crossings  int     `csv:"crossings"`
	ElapsedMs  int64   `csv:"elapsed_ms"`
	Trajectory string  `csv:"trajectory"`
}

// RunLog appends RunRecords to a CSV file. The header is written only when
// the file is new or empty, so successive runs share one file.
type RunLog struct {
	mu            sync.Mutex
	path          string
	file          *os.File
	headerWritten bool
}

func OpenRunLog(path string) (*RunLog, error) {
	if path == "" {
		return nil, fmt.Errorf("run log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create run log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat run log: %w", err)
	}

	return &RunLog{path: path, file: f, headerWritten: st.Size() > 0}, nil
}

func (l *RunLog) Path() string { return l.path }

func (l *RunLog) Append(rec RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("run log is closed")
	}

	records := []RunRecord{rec}
	if !l.headerWritten {
		if err := gocsv.Marshal(records, l.file); err != nil {
			return fmt.Errorf("writing run record: %w", err)
		}
		l.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, l.file); err != nil {
			return fmt.Errorf("writing run record: %w", err)
		}
	}
	return l.file.Sync()
}

func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadRunLog loads every record of a runs.csv file.
func ReadRunLog(path string) ([]RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []RunRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("read run log %s: %w", path, err)
	}
	return records, nil
}
