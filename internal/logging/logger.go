package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger writes one JSON object per line with ts, level, msg, component and
// any structured fields.
type Logger struct {
	level     Level
	component string
	logger    *slog.Logger
}

func NewLogger(levelStr string) *Logger {
	return NewLoggerWithWriter(levelStr, os.Stdout)
}

func NewLoggerWithWriter(levelStr string, w io.Writer) *Logger {
	level := ParseLevel(levelStr)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level.slogLevel(),
		ReplaceAttr: replaceAttr,
	})
	return &Logger{level: level, logger: slog.New(handler)}
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(strings.ToLower(lvl.String()))
		}
	}
	return a
}

// WithComponent returns a logger that tags every line with name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		level:     l.level,
		component: name,
		logger:    l.logger.With("component", name),
	}
}

func (l *Logger) Level() Level { return l.level }

func (l *Logger) log(level slog.Level, msg string, fields map[string]any) {
	if !l.logger.Enabled(context.Background(), level) {
		return
	}
	attrs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		attrs = append(attrs, k, v)
	}
	l.logger.Log(context.Background(), level, msg, attrs...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(slog.LevelDebug, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(slog.LevelInfo, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(slog.LevelWarn, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(slog.LevelError, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Debugw(msg string, fields map[string]any) { l.log(slog.LevelDebug, msg, fields) }

func (l *Logger) Infow(msg string, fields map[string]any) { l.log(slog.LevelInfo, msg, fields) }

func (l *Logger) Warnw(msg string, fields map[string]any) { l.log(slog.LevelWarn, msg, fields) }

func (l *Logger) Errorw(msg string, fields map[string]any) { l.log(slog.LevelError, msg, fields) }

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(slog.LevelError, fmt.Sprintf(format, args...), map[string]any{"fatal": true})
	os.Exit(1)
}
