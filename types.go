package edfsm

import "sync/atomic"

// StateID is the name of a regular state
type StateID string

// EventID is the name of an event on the input or output bus
type EventID string

// StateRef identifies either a regular state or the terminal state.
// The terminal state has no name, so it can never collide with a
// caller-chosen state name.
type StateRef struct {
	name     StateID
	terminal bool
}

// Regular returns a reference to the regular state name
func Regular(name StateID) StateRef {
	return StateRef{name: name}
}

// Terminal returns the reference to the terminal state
func Terminal() StateRef {
	return StateRef{terminal: true}
}

// Name returns the state name. It is empty for the terminal state.
func (r StateRef) Name() StateID {
	return r.name
}

// IsTerminal reports whether r refers to the terminal state
func (r StateRef) IsTerminal() bool {
	return r.terminal
}

func (r StateRef) String() string {
	if r.terminal {
		return "$final"
	}
	return string(r.name)
}

// IDGenerator hands out instance ids. Implementations must return strictly
// increasing values and be safe for concurrent use.
type IDGenerator interface {
	NextID() uint64
}

// Counter is an atomic IDGenerator starting at 1.
// Its lifetime bounds the uniqueness of the ids it hands out; share one
// Counter between definitions to get ids unique across all of them.
type Counter struct {
	n atomic.Uint64
}

// NewCounter returns a fresh Counter
func NewCounter() *Counter {
	return &Counter{}
}

// NextID returns the next id
func (c *Counter) NextID() uint64 {
	return c.n.Add(1)
}
