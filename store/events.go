package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// TickEvent is one JSONL line of the event log.
type TickEvent struct {
	RunID   string       `json:"run_id"`
	Turn    int          `json:"turn"`
	Goal    int          `json:"goal"`
	Ate     int          `json:"ate"`
	Done    bool         `json:"done,omitempty"`
	Outcome string       `json:"outcome,omitempty"`
	Agents  []AgentEvent `json:"agents,omitempty"`
}

type AgentEvent struct {
	ID       string `json:"id"`
	Class    string `json:"class"`
	Chosen   string `json:"chosen"`
	HeadX    int    `json:"x"`
	HeadY    int    `json:"y"`
	Fallback bool   `json:"fallback,omitempty"`
	NoSafe   bool   `json:"no_safe,omitempty"`
	Crossed  bool   `json:"crossed,omitempty"`
	Collided bool   `json:"collided,omitempty"`
	Cause    string `json:"cause,omitempty"`
}

// EventWriter appends JSON values, one per line, to zstd-compressed files
// named <prefix>-<UTC hour>.jsonl.zst. A new file is started when the hour
// changes.
type EventWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewEventWriter(baseDir, prefix string) *EventWriter {
	if prefix == "" {
		prefix = "events"
	}
	return &EventWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *EventWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *EventWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// CurrentPath is the file being written, or "" before the first write.
func (w *EventWriter) CurrentPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.curHour == "" {
		return ""
	}
	return w.pathForHour(w.curHour)
}

func (w *EventWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *EventWriter) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err
}

func (w *EventWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ReadEvents decodes every TickEvent in one event log file.
func ReadEvents(path string) ([]TickEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var out []TickEvent
	for sc.Scan() {
		var ev TickEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		out = append(out, ev)
	}
	return out, sc.Err()
}
