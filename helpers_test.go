package edfsm

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// busCall is one call made on a recordingBus
type busCall struct {
	op       string
	event    EventID
	listener *Listener
	payload  any
}

// recordingBus is an input and output bus that remembers every call
type recordingBus struct {
	mu        sync.Mutex
	calls     []busCall
	listeners map[EventID][]*Listener
	consumed  bool // value Emit reports when forced
	forced    bool
}

func newRecordingBus() *recordingBus {
	return &recordingBus{listeners: make(map[EventID][]*Listener)}
}

// reporting makes Emit report consumed regardless of listeners
func (b *recordingBus) reporting(consumed bool) *recordingBus {
	b.forced, b.consumed = true, consumed
	return b
}

func (b *recordingBus) On(event EventID, l *Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, busCall{op: "on", event: event, listener: l})
	b.listeners[event] = append(b.listeners[event], l)
}

func (b *recordingBus) RemoveListener(event EventID, l *Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, busCall{op: "remove", event: event, listener: l})
	ls := b.listeners[event]
	if i := slices.Index(ls, l); i >= 0 {
		b.listeners[event] = slices.Delete(slices.Clone(ls), i, i+1)
	}
}

func (b *recordingBus) Emit(event EventID, payload any) bool {
	b.mu.Lock()
	b.calls = append(b.calls, busCall{op: "emit", event: event, payload: payload})
	ls := b.listeners[event]
	forced, consumed := b.forced, b.consumed
	b.mu.Unlock()

	for _, l := range ls {
		l.Handle(payload)
	}
	if forced {
		return consumed
	}
	return len(ls) > 0
}

func (b *recordingBus) ops(op string) []busCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []busCall
	for _, c := range b.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func (b *recordingBus) count(event EventID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event])
}

// logEntry is one recorded log call
type logEntry struct {
	level  string
	msg    string
	fields Fields
}

type logRecorder struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *logRecorder) record(level string) LogFunc {
	return func(msg string, fields Fields) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entries = append(r.entries, logEntry{level: level, msg: msg, fields: fields})
	}
}

func (r *logRecorder) Log() Log {
	return Log{Debug: r.record("debug"), Warn: r.record("warn"), Error: r.record("error")}
}

func (r *logRecorder) all() []logEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

func (r *logRecorder) byID(id string) []logEntry {
	var out []logEntry
	for _, e := range r.all() {
		if e.fields[FieldMessageID] == id {
			out = append(out, e)
		}
	}
	return out
}

// fakeClock fires timers only when advanced
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Duration
	f     func()
	done  bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves virtual time forward and fires the timers that became due
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && t.at <= c.now {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// pending counts timers that are neither stopped nor fired
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// waitEnd fails the test if inst does not end within a second
func waitEnd(t *testing.T, inst *Instance) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, inst.Wait(ctx), "instance did not end")
}

// receive fails the test if nothing arrives on ch within a second
func receive[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting")
	}
	var zero T
	return zero
}
