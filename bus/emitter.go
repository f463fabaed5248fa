// Package bus provides an in-process event bus usable as both the input
// and the output bus of an edfsm definition.
package bus

import (
	"slices"
	"sync"

	"github.com/librescoot/edfsm"
)

// Emitter is an in-process publish/subscribe bus. Listeners run
// synchronously on the emitting goroutine, in subscription order.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[edfsm.EventID][]*edfsm.Listener
}

// NewEmitter creates an empty Emitter
func NewEmitter() *Emitter {
	return &Emitter{
		listeners: make(map[edfsm.EventID][]*edfsm.Listener),
	}
}

// On subscribes l to event. Subscribing the same listener twice delivers
// events to it twice.
func (e *Emitter) On(event edfsm.EventID, l *edfsm.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], l)
}

// RemoveListener removes the most recent subscription of l to event
func (e *Emitter) RemoveListener(event edfsm.EventID, l *edfsm.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ls := e.listeners[event]
	for i := len(ls) - 1; i >= 0; i-- {
		if ls[i] == l {
			ls = slices.Delete(slices.Clone(ls), i, i+1)
			break
		}
	}
	if len(ls) == 0 {
		delete(e.listeners, event)
		return
	}
	e.listeners[event] = ls
}

// Emit delivers payload to every listener of event and reports whether
// there was any
func (e *Emitter) Emit(event edfsm.EventID, payload any) bool {
	e.mu.RLock()
	ls := e.listeners[event]
	e.mu.RUnlock()

	// ls is never modified in place, so listeners may subscribe or
	// unsubscribe while it is being walked
	for _, l := range ls {
		l.Handle(payload)
	}
	return len(ls) > 0
}

// ListenerCount returns the number of subscriptions to event
func (e *Emitter) ListenerCount(event edfsm.EventID) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[event])
}
