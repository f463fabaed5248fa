package edfsm

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// Fields carries the structured part of a log entry
type Fields map[string]any

// LogFunc receives one log entry
type LogFunc func(msg string, fields Fields)

// Log groups the optional log channels. Nil funcs are no-ops.
type Log struct {
	Debug LogFunc
	Warn  LogFunc
	Error LogFunc
}

// Message ids of the lifecycle log points
const (
	MsgCreated     = "fdd14aefc01c4ca8a34bde4cc8f3ede4"
	MsgEnterState  = "4d1314823a494567ba0c24dd74a8285a"
	MsgNoListeners = "c84984c1816e4bf7b552dd7e638e9fa9"
	MsgError       = "42df5fdea6fe4bf29332e2d6b0fbd9d9"
	MsgRemoved     = "7be6d26c828240a0bb82fc84e5d6a662"
)

// LogPoint describes one lifecycle log point
type LogPoint struct {
	ID       string
	Level    string
	Template string
}

// Catalogue lists the lifecycle log points. Templates are prefixed with
// "{fsmName}: " when the definition is named.
var Catalogue = []LogPoint{
	{ID: MsgCreated, Level: "debug", Template: "Created new instance"},
	{ID: MsgEnterState, Level: "debug", Template: "Enter state {state}"},
	{ID: MsgNoListeners, Level: "warn", Template: "Event {event} had no listeners"},
	{ID: MsgError, Level: "error", Template: "{errorMessage}"},
	{ID: MsgRemoved, Level: "debug", Template: "Removed instance"},
}

// Field keys used in lifecycle log entries
const (
	FieldMessageID = "message_id"
	FieldFSMID     = "fsm_id"
	FieldFSMName   = "fsm_name"
	FieldState     = "state"
	FieldEvent     = "event"
	FieldError     = "error"
	FieldStack     = "stack"
)

// SlogLog routes the log channels to l. Fields become attributes in
// sorted key order.
func SlogLog(l *slog.Logger) Log {
	emit := func(level slog.Level) LogFunc {
		return func(msg string, fields Fields) {
			ctx := context.Background()
			if !l.Enabled(ctx, level) {
				return
			}
			attrs := make([]slog.Attr, 0, len(fields))
			for _, k := range slices.Sorted(maps.Keys(fields)) {
				attrs = append(attrs, slog.Any(k, fields[k]))
			}
			l.LogAttrs(ctx, level, msg, attrs...)
		}
	}
	return Log{
		Debug: emit(slog.LevelDebug),
		Warn:  emit(slog.LevelWarn),
		Error: emit(slog.LevelError),
	}
}

func (fn LogFunc) call(msg string, fields Fields) {
	if fn != nil {
		fn(msg, fields)
	}
}
