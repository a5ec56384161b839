// Package logger builds the zap logger and keeps recent lines for on-screen display.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFilePath is the default log file, relative to the working directory.
const LogFilePath = "logs/xranchor.log"

// DefaultRecent is how many lines the in-memory recorder keeps.
const DefaultRecent = 8

// Options configure New.
type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool
	// File receives JSON lines; empty disables the file.
	File string
	// Recent is the size of the in-memory line buffer (DefaultRecent when zero).
	Recent int
}

// Logger is a zap logger that also keeps the most recent info-or-higher
// messages for on-screen display.
type Logger struct {
	*zap.Logger
	recent *Recorder
	close  func()
}

// New builds a console logger on stderr, teed to the log file and the recorder.
func New(opts Options) (*Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Verbose {
		level.SetLevel(zapcore.DebugLevel)
	}
	n := opts.Recent
	if n <= 0 {
		n = DefaultRecent
	}
	rec := NewRecorder(n)

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
		rec,
	}

	closeFile := func() {}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		sink, closeFn, err := zap.Open(opts.File)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		closeFile = closeFn
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, level,
		))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return &Logger{Logger: l, recent: rec, close: closeFile}, nil
}

// Lines returns the recent messages, oldest first.
func (l *Logger) Lines() []string {
	return l.recent.Lines()
}

// Close flushes and closes the log file. Sync errors are dropped: stderr
// cannot be synced on most terminals.
func (l *Logger) Close() {
	_ = l.Sync()
	l.close()
}

// Recorder is a zapcore.Core that keeps the last n messages at info level or
// above, each prefixed with [timestamp].
type Recorder struct {
	mu    sync.Mutex
	lines []string
	max   int
}

// NewRecorder keeps up to n lines.
func NewRecorder(n int) *Recorder {
	return &Recorder{max: n}
}

func (r *Recorder) Enabled(l zapcore.Level) bool { return l >= zapcore.InfoLevel }

func (r *Recorder) With([]zapcore.Field) zapcore.Core { return r }

func (r *Recorder) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if r.Enabled(ent.Level) {
		return ce.AddCore(ent, r)
	}
	return ce
}

func (r *Recorder) Write(ent zapcore.Entry, _ []zapcore.Field) error {
	stamped := "[" + ent.Time.Format("15:04:05") + "] " + ent.Message
	if ent.Level > zapcore.InfoLevel {
		stamped = "[" + ent.Time.Format("15:04:05") + "] " + ent.Level.CapitalString() + " " + ent.Message
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, stamped)
	if len(r.lines) > r.max {
		r.lines = r.lines[len(r.lines)-r.max:]
	}
	return nil
}

func (r *Recorder) Sync() error { return nil }

// Lines returns a copy of all stored lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}
