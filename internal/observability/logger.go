// Package observability adapts logrus, Prometheus and OpenTelemetry to the
// logging, metrics, tracing and audit hooks of core.Service.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"producechain/internal/config"
	"producechain/internal/core"
)

// Logger maps the leveled key/value calls of core.Logger onto logrus fields.
type Logger struct {
	entry *logrus.Entry
}

var _ core.Logger = (*Logger)(nil)

// NewLogrusLogger wraps an existing logrus logger. A nil logger uses logrus.StandardLogger().
func NewLogrusLogger(l *logrus.Logger) *Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Logger{entry: logrus.NewEntry(l)}
}

// NewLogger builds a logrus logger writing to w with the configured level and format.
func NewLogger(w io.Writer, cfg config.Log) (*Logger, error) {
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return NewLogrusLogger(l), nil
}

// With returns a logger carrying the extra key/value pairs on every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{entry: l.entry.WithFields(fields(args))}
}

func (l *Logger) Debug(msg string, args ...any) { l.entry.WithFields(fields(args)).Debug(msg) }
func (l *Logger) Info(msg string, args ...any)  { l.entry.WithFields(fields(args)).Info(msg) }
func (l *Logger) Warn(msg string, args ...any)  { l.entry.WithFields(fields(args)).Warn(msg) }
func (l *Logger) Error(msg string, args ...any) { l.entry.WithFields(fields(args)).Error(msg) }

// fields pairs up args; a trailing key without a value is logged under "!BADKEY".
func fields(args []any) logrus.Fields {
	out := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			out["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		value := args[i+1]
		if err, isErr := value.(error); isErr {
			value = err.Error()
		}
		out[key] = value
	}
	return out
}
