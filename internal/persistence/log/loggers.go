package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"campaign.ai/internal/sim/world"
)

// JSONLZstdWriter appends JSON lines to zstd files, one file per block of
// segmentTurns turns.
type JSONLZstdWriter struct {
	baseDir      string
	prefix       string
	segmentTurns int

	mu     sync.Mutex
	curSeg int
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string, segmentTurns int) *JSONLZstdWriter {
	if segmentTurns <= 0 {
		segmentTurns = 100
	}
	return &JSONLZstdWriter{
		baseDir:      baseDir,
		prefix:       prefix,
		segmentTurns: segmentTurns,
		curSeg:       -1,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(turn int, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	seg := w.segmentFor(turn)
	if seg != w.curSeg || w.w == nil {
		if err := w.rotateLocked(seg); err != nil {
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

func (w *JSONLZstdWriter) segmentFor(turn int) int {
	if turn < 0 {
		turn = 0
	}
	return (turn / w.segmentTurns) * w.segmentTurns
}

func (w *JSONLZstdWriter) rotateLocked(seg int) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	// Appending starts a new zstd frame; readers handle concatenated frames.
	f, err := os.OpenFile(w.pathForSegment(seg), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
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
	w.curSeg = seg
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
	return err1
}

func (w *JSONLZstdWriter) pathForSegment(seg int) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%08d.jsonl.zst", w.prefix, seg))
}

// TurnLogger writes one JSONL entry per ended turn (compressed).
type TurnLogger struct{ w *JSONLZstdWriter }

func NewTurnLogger(dataDir string, segmentTurns int) *TurnLogger {
	return &TurnLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "turns"), "turns", segmentTurns)}
}

func (l *TurnLogger) WriteTurn(v world.TurnLogEntry) error { return l.w.Write(v.Turn, v) }
func (l *TurnLogger) Close() error                         { return l.w.Close() }

// DecisionLogger writes one JSONL entry per operator command (compressed).
type DecisionLogger struct{ w *JSONLZstdWriter }

func NewDecisionLogger(dataDir string, segmentTurns int) *DecisionLogger {
	return &DecisionLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "decisions"), "decisions", segmentTurns)}
}

func (l *DecisionLogger) WriteDecision(v world.DecisionEntry) error { return l.w.Write(v.Turn, v) }
func (l *DecisionLogger) Close() error                              { return l.w.Close() }
