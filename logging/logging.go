// Package logging adapts common loggers to the edfsm.Log contract.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/librescoot/edfsm"
	"github.com/sirupsen/logrus"
)

// New creates a text logger on stderr
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == edfsm.FieldError {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a logger that discards everything
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps debug, info, warn and error to slog levels
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// Logrus routes the lifecycle log to a logrus logger
func Logrus(logger logrus.FieldLogger) edfsm.Log {
	return edfsm.Log{
		Debug: func(msg string, fields edfsm.Fields) {
			logger.WithFields(logrus.Fields(fields)).Debug(msg)
		},
		Warn: func(msg string, fields edfsm.Fields) {
			logger.WithFields(logrus.Fields(fields)).Warn(msg)
		},
		Error: func(msg string, fields edfsm.Fields) {
			logger.WithFields(logrus.Fields(fields)).Error(msg)
		},
	}
}
