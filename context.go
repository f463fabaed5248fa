package edfsm

import (
	"sync"
	"time"
)

// Context is handed to a state handler for one activation. It carries the
// run's shared data and the activation's capabilities: subscribing to the
// input bus, emitting on the output bus and resolving the transition.
type Context struct {
	Data any     // Caller-supplied run context, shared by all states
	Last StateID // State the machine came from, empty for the first state

	inst  *Instance
	state StateID
	trig  *trigger
	ready chan struct{} // closed once the handler has returned

	subsMu sync.Mutex
	subs   []subscription
	left   bool
}

func newContext(m *Instance, state, last StateID) *Context {
	return &Context{
		Data:  m.data,
		Last:  last,
		inst:  m,
		state: state,
		trig:  newTrigger(m.def.clock),
		ready: make(chan struct{}),
	}
}

// State returns the name of the state this activation belongs to
func (c *Context) State() StateID {
	return c.state
}

// Instance returns the instance running this activation
func (c *Context) Instance() *Instance {
	return c.inst
}

// On subscribes fn to event on the input bus for the rest of this
// activation. Each call adds an independent subscription; all of them are
// removed when the state is left. Calls after the state was left are
// ignored.
func (c *Context) On(event EventID, fn func(payload any)) {
	l := NewListener(fn)

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	if c.left {
		return
	}
	c.subs = append(c.subs, subscription{event: event, listener: l})
	c.inst.def.input.On(event, l)
}

// Emit publishes payload as event on the output bus and warns when no
// listener consumed it
func (c *Context) Emit(event EventID, payload any) {
	if c.inst.def.output.Emit(event, payload) {
		return
	}
	c.inst.logWarn(MsgNoListeners, "Event "+string(event)+" had no listeners", Fields{
		FieldEvent: string(event),
	})
	if fn := c.inst.def.hooks.OnUnconsumed; fn != nil {
		fn(c.inst.info(), event)
	}
}

// Next resolves the transition with o. Only the first resolution of an
// activation counts; Next reports whether this call was it.
func (c *Context) Next(o Outcome) bool {
	return c.trig.resolve(o)
}

// Goto resolves the transition towards state name
func (c *Context) Goto(name StateID) bool {
	return c.Next(Goto(name))
}

// End resolves the transition towards the terminal state
func (c *Context) End() bool {
	return c.Next(End())
}

// Fail resolves the transition towards the terminal state carrying err
func (c *Context) Fail(err error) bool {
	return c.Next(Fail(err))
}

// Timeout resolves the transition with o after d unless it is resolved
// earlier. A second call replaces the pending timeout.
func (c *Context) Timeout(d time.Duration, o Outcome) {
	c.trig.arm(d, o)
}

// TimeoutPending reports whether a timeout is armed and has not fired
func (c *Context) TimeoutPending() bool {
	return c.trig.armed()
}

// detach marks the activation as left and hands back its subscriptions
func (c *Context) detach() []subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	c.left = true
	subs := c.subs
	c.subs = nil
	return subs
}
