package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"blockmaze.ai/internal/sim/actions"
	"blockmaze.ai/internal/sim/pipeline"
	"blockmaze.ai/internal/sim/synth"
)

// JSONLZstdWriter appends JSON lines to hourly zstd files named
// <prefix>-YYYY-MM-DD-HH.jsonl.zst.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
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
	if err := w.w.Flush(); err != nil {
		return err
	}
	// Emit a complete zstd block so readers see the record before rotation.
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
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
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// SolveRecord is one JSONL entry per solve attempt. Level carries the input
// so that a record can be re-verified later.
type SolveRecord struct {
	Time       time.Time        `json:"time"`
	RequestID  string           `json:"request_id,omitempty"`
	Source     string           `json:"source,omitempty"`
	LevelID    string           `json:"level_id,omitempty"`
	Digest     string           `json:"digest,omitempty"`
	Found      bool             `json:"found"`
	BlockCount int              `json:"block_count"`
	RawActions []actions.Action `json:"raw_actions"`
	Structured []string         `json:"structured,omitempty"`
	Program    *synth.Program   `json:"program,omitempty"`
	Expanded   int              `json:"expanded"`
	Visited    int              `json:"visited"`
	ElapsedMs  int64            `json:"elapsed_ms"`
	Error      string           `json:"error,omitempty"`
	ErrorCode  string           `json:"error_code,omitempty"`
	Level      json.RawMessage  `json:"level,omitempty"`
}

// RecordOf builds a record from a pipeline solution.
func RecordOf(sol pipeline.Solution, level []byte) SolveRecord {
	rec := SolveRecord{
		Time:       time.Now().UTC(),
		LevelID:    sol.LevelID,
		Digest:     sol.Digest,
		Found:      sol.Found,
		BlockCount: sol.BlockCount,
		RawActions: sol.RawActions,
		Structured: sol.Structured,
		Expanded:   sol.Expanded,
		Visited:    sol.Visited,
		ElapsedMs:  sol.Elapsed.Milliseconds(),
		Level:      json.RawMessage(level),
	}
	if sol.Found {
		p := sol.Program
		rec.Program = &p
	}
	return rec
}

// SolveLogger writes solve records (compressed) under <dir>/solves.
type SolveLogger struct{ w *JSONLZstdWriter }

func NewSolveLogger(dir string) *SolveLogger {
	return &SolveLogger{w: NewJSONLZstdWriter(filepath.Join(dir, "solves"), "solves")}
}

func (l *SolveLogger) WriteSolve(rec SolveRecord) error { return l.w.Write(rec) }
func (l *SolveLogger) Close() error                     { return l.w.Close() }
