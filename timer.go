package edfsm

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a pending delayed call
type Timer interface {
	Stop() bool
}

// Clock schedules delayed calls
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// trigger is the single-use transition point of one activation. Only the
// first resolve has effect; its outcome is handed to the instance loop
// through resolved.
type trigger struct {
	once     sync.Once
	resolved chan Outcome
	fired    atomic.Bool

	clock   Clock
	timerMu sync.Mutex
	timer   Timer
	stopped bool
}

func newTrigger(clock Clock) *trigger {
	return &trigger{
		resolved: make(chan Outcome, 1),
		clock:    clock,
	}
}

// resolve reports whether this call was the one that took effect
func (t *trigger) resolve(o Outcome) bool {
	won := false
	t.once.Do(func() {
		t.fired.Store(true)
		t.resolved <- o
		won = true
	})
	return won
}

// done reports whether the trigger has been resolved
func (t *trigger) done() bool {
	return t.fired.Load()
}

// arm resolves the trigger with o after d unless something else resolves
// it first. Arming again replaces the pending timer.
func (t *trigger) arm(d time.Duration, o Outcome) {
	t.timerMu.Lock()
	defer t.timerMu.Unlock()

	if t.stopped {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	var tm Timer
	tm = t.clock.AfterFunc(d, func() {
		t.timerMu.Lock()
		current := t.timer == tm
		if current {
			t.timer = nil
		}
		t.timerMu.Unlock()

		// a replaced or disarmed timer that fired anyway stays silent
		if current {
			t.resolve(o)
		}
	})
	t.timer = tm
}

// disarm cancels the pending timer and refuses further arming
func (t *trigger) disarm() {
	t.timerMu.Lock()
	defer t.timerMu.Unlock()

	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// armed reports whether a timer is pending
func (t *trigger) armed() bool {
	t.timerMu.Lock()
	defer t.timerMu.Unlock()
	return t.timer != nil
}
