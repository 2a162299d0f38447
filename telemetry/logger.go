package telemetry

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type LogConfig struct {
	Level  string // trace, debug, info, warn, error
	Format string // console or json
	Output string // stdout, stderr or a file path
	Caller bool
}

func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "console", Output: "stderr"}
}

// Logger wraps zerolog with a component field per subsystem.
type Logger struct {
	zlog zerolog.Logger
	cfg  LogConfig
}

func NewLogger(cfg LogConfig) (l *Logger, err error) {
	var w io.Writer
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		var f *os.File
		if f, err = os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			err = fmt.Errorf("opening log output: %w", err)
			return
		}
		w = f
	}
	return NewLoggerTo(w, cfg)
}

// NewLoggerTo logs to w, used for tests and embedding.
func NewLoggerTo(w io.Writer, cfg LogConfig) (l *Logger, err error) {
	var level zerolog.Level
	if level, err = ParseLevel(cfg.Level); err != nil {
		return
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if cfg.Caller {
		zl = zl.With().Caller().Logger()
	}
	l = &Logger{zlog: zl, cfg: cfg}
	return
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func ParseLevel(label string) (level zerolog.Level, err error) {
	switch strings.ToLower(label) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "", "info":
		level = zerolog.InfoLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		err = fmt.Errorf("unknown log level %q", label)
	}
	return
}

func (l *Logger) NewComponentLogger(component string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("component", component).Logger(), cfg: l.cfg}
}

func (l *Logger) WithRank(rank int) *Logger {
	return &Logger{zlog: l.zlog.With().Int("rank", rank).Logger(), cfg: l.cfg}
}

func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{zlog: l.zlog.With().Str("run_id", runID).Logger(), cfg: l.cfg}
}

func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }

func (l *Logger) Info() *zerolog.Event { return l.zlog.Info() }

func (l *Logger) Warn() *zerolog.Event { return l.zlog.Warn() }

func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }
