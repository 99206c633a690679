// Package logger provides a lightweight, centralized logging facility
// with configurable verbosity levels.
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Messages are formatted at the call site in `event=name key=value` style and
// emitted through a log/slog handler (text or JSON). Output can go to stderr,
// a size-rotated file, or both.
//
// Example usage:
//
//	logger.SetVerbosity(2) // Debug
//	logger.Infof("event=chain_loaded rows=%d", n)
//	logger.Debugf("spot=%f atm=%f", spot, atm)
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int

const (
	Error Level = iota // Error logs only critical failures.
	Info               // Info logs high-level application progress.
	Debug              // Debug logs detailed diagnostic information.
	Trace              // Trace logs very fine-grained execution details.
)

// levelTrace sits below slog's Debug so handlers never filter it themselves.
const levelTrace = slog.Level(-8)

// Config controls handler format and destination.
type Config struct {
	Level      string `mapstructure:"level"`       // error, info, debug, trace
	Format     string `mapstructure:"format"`      // text or json
	Output     string `mapstructure:"output"`      // stderr, stdout, file, both
	FilePath   string `mapstructure:"file_path"`   // used when output is file or both
	MaxSize    int    `mapstructure:"max_size"`    // megabytes before rotation
	MaxBackups int    `mapstructure:"max_backups"` // rotated files kept
	MaxAge     int    `mapstructure:"max_age"`     // days rotated files are kept
	Compress   bool   `mapstructure:"compress"`    // gzip rotated files
}

var (
	current atomic.Int32
	base    atomic.Pointer[slog.Logger]
)

func init() {
	current.Store(int32(Info))
	base.Store(newSlog(os.Stderr, "text"))
}

// Init installs the handler described by cfg and sets the verbosity from
// cfg.Level. It is typically called once during application startup.
func Init(cfg Config) error {
	var out io.Writer = os.Stderr

	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
	case "stdout":
		out = os.Stdout
	case "file", "both":
		if cfg.FilePath == "" {
			return fmt.Errorf("log output %q requires file_path", cfg.Output)
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		out = rotating
		if strings.EqualFold(cfg.Output, "both") {
			out = io.MultiWriter(os.Stderr, rotating)
		}
	default:
		return fmt.Errorf("unknown log output %q", cfg.Output)
	}

	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	base.Store(newSlog(out, cfg.Format))
	current.Store(int32(lvl))
	return nil
}

// SetOutput redirects log output (mainly for tests).
func SetOutput(w io.Writer, format string) {
	base.Store(newSlog(w, format))
}

// ParseLevel maps a level name to a Level. Empty means Info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return Error, nil
	case "", "info":
		return Info, nil
	case "debug":
		return Debug, nil
	case "trace":
		return Trace, nil
	}
	return Info, fmt.Errorf("unknown log level %q", s)
}

// SetVerbosity sets the global logging verbosity.
func SetVerbosity(v int) {
	current.Store(int32(v))
}

func newSlog(w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: levelTrace,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == levelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// logf checks verbosity and hands the formatted message to slog.
func logf(l Level, sl slog.Level, format string, args ...any) {
	if Level(current.Load()) >= l {
		base.Load().Log(context.Background(), sl, fmt.Sprintf(format, args...))
	}
}

// Errorf logs an error-level message.
// Use this for failures that require attention.
func Errorf(format string, args ...any) {
	logf(Error, slog.LevelError, format, args...)
}

// Infof logs an informational message.
// Use this for major lifecycle events.
func Infof(format string, args ...any) {
	logf(Info, slog.LevelInfo, format, args...)
}

// Debugf logs debugging information.
func Debugf(format string, args ...any) {
	logf(Debug, slog.LevelDebug, format, args...)
}

// Tracef logs very detailed execution traces.
// Use this sparingly due to high volume.
func Tracef(format string, args ...any) {
	logf(Trace, levelTrace, format, args...)
}
