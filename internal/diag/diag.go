// Package diag builds the process logger.
//
// Besides the console, every entry is appended to a per-day, per-level file:
// <dir>/<YYYY-MM-DD>/<level>.txt
package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config contains logger configuration
type Config struct {
	Dir   string // Log directory, empty disables file output
	Debug bool
}

var fileLevels = []zapcore.Level{
	zapcore.DebugLevel,
	zapcore.InfoLevel,
	zapcore.WarnLevel,
	zapcore.ErrorLevel,
}

// New creates the logger
func New(cfg Config) (*zap.Logger, error) {
	minLevel := zapcore.InfoLevel
	if cfg.Debug {
		minLevel = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), minLevel),
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		for _, lvl := range fileLevels {
			if lvl < minLevel {
				continue
			}
			lvl := lvl
			enabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
				// errors above ErrorLevel (panic, fatal) go to the error file
				if lvl == zapcore.ErrorLevel {
					return l >= lvl
				}
				return l == lvl
			})
			cores = append(cores, zapcore.NewCore(fileEnc, NewDailyWriter(cfg.Dir, lvl.String()), enabler))
		}
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// DailyWriter appends to <dir>/<date>/<name>.txt, switching files when the date changes
type DailyWriter struct {
	dir  string
	name string
	now  func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

// NewDailyWriter creates a writer for one log level
func NewDailyWriter(dir, name string) *DailyWriter {
	return &DailyWriter{dir: dir, name: name, now: time.Now}
}

// Write implements zapcore.WriteSyncer
func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().Format("2006-01-02")
	if w.file == nil || day != w.day {
		if err := w.rotate(day); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

// Sync implements zapcore.WriteSyncer
func (w *DailyWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the current file
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Path returns the file path for the given day
func (w *DailyWriter) Path(day string) string {
	return filepath.Join(w.dir, day, w.name+".txt")
}

func (w *DailyWriter) rotate(day string) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	folder := filepath.Join(w.dir, day)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("failed to create log folder: %w", err)
	}
	f, err := os.OpenFile(w.Path(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	w.file = f
	w.day = day
	return nil
}
