package edfsm

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/pkg/errors"
)

// Instance is one run of a Definition
type Instance struct {
	def   *Definition
	id    uint64
	data  any
	onEnd func(error)

	mu      sync.Mutex
	current StateRef
	active  *Context
	changed chan struct{} // closed and replaced whenever active changes

	done chan struct{}
}

func newInstance(d *Definition, data any, onEnd func(error)) *Instance {
	return &Instance{
		def:     d,
		id:      d.ids.NextID(),
		data:    data,
		onEnd:   onEnd,
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ID returns the instance id
func (m *Instance) ID() uint64 {
	return m.id
}

// Name returns the name of the instance's definition
func (m *Instance) Name() string {
	return m.def.name
}

// Current returns the state the instance is in
func (m *Instance) Current() StateRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Next resolves the current activation's transition from outside the
// machine, for example to abort a run with Fail. It reports false when
// the activation was already resolved or the run is over.
func (m *Instance) Next(o Outcome) bool {
	m.mu.Lock()
	act := m.active
	m.mu.Unlock()

	if act == nil {
		return false
	}
	return act.Next(o)
}

// Done is closed once the run has ended and onEnd has returned
func (m *Instance) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the run has ended or ctx is done
func (m *Instance) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settle blocks until the instance waits in a state whose handler has
// returned and whose transition is still open, or until the run is over.
// Events emitted after Settle reach that state's subscriptions. Delivery
// that happens asynchronously on the input bus has to complete before
// calling Settle.
func (m *Instance) Settle(ctx context.Context) error {
	for {
		m.mu.Lock()
		act, changed := m.active, m.changed
		m.mu.Unlock()

		if act == nil {
			return m.Wait(ctx)
		}

		select {
		case <-act.ready:
		case <-m.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
		if !act.trig.done() {
			return nil
		}

		select {
		case <-changed:
		case <-m.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// start enters the first state on the caller's goroutine and hands the
// rest of the run to loop
func (m *Instance) start() {
	m.logDebug(MsgCreated, "Created new instance", nil)
	if fn := m.def.hooks.OnCreate; fn != nil {
		fn(m.info())
	}

	act := m.enter(m.def.first, "")
	go m.loop(act)
}

// loop drives the instance: wait for the activation to resolve, leave it,
// then enter whatever comes next
func (m *Instance) loop(act *Context) {
	for {
		outcome := <-act.trig.resolved
		if name := outcome.State(); outcome.Kind() == OutcomeGoto && !m.def.Has(name) {
			outcome = Fail(errors.Wrapf(ErrUnknownState, "%s -> %q", act.state, name))
		}
		m.leave(act, outcome)

		next, err := outcome.target()
		if next.IsTerminal() {
			m.finish(err, act.state)
			return
		}
		act = m.enter(next.Name(), act.state)
	}
}

// enter activates state name and invokes its handler
func (m *Instance) enter(name, last StateID) *Context {
	act := newContext(m, name, last)

	m.mu.Lock()
	m.current = Regular(name)
	m.setActive(act)
	m.mu.Unlock()

	m.logDebug(MsgEnterState, "Enter state "+string(name), Fields{FieldState: string(name)})
	if fn := m.def.hooks.OnEnter; fn != nil {
		fn(m.info(), name)
	}

	m.def.states[name](act)
	close(act.ready)
	return act
}

// setActive must be called with mu held
func (m *Instance) setActive(act *Context) {
	m.active = act
	close(m.changed)
	m.changed = make(chan struct{})
}

// leave tears down an activation: timer first, then subscriptions in the
// order they were made
func (m *Instance) leave(act *Context, outcome Outcome) {
	act.trig.disarm()
	for _, s := range act.detach() {
		m.def.input.RemoveListener(s.event, s.listener)
	}

	if fn := m.def.hooks.OnLeave; fn != nil {
		fn(m.info(), act.state, outcome)
	}
}

// finish runs the terminal handler and reports the outcome of the run
func (m *Instance) finish(err error, last StateID) {
	m.mu.Lock()
	m.current = Terminal()
	m.setActive(nil)
	m.mu.Unlock()

	result := m.def.final(m.data, err, last)

	m.logDebug(MsgRemoved, "Removed instance", nil)
	if result != nil {
		m.logError(MsgError, result.Error(), Fields{
			FieldError: result.Error(),
			FieldStack: fmt.Sprintf("%+v", result),
		})
	}
	if fn := m.def.hooks.OnEnd; fn != nil {
		fn(m.info(), result)
	}
	if m.onEnd != nil {
		m.onEnd(result)
	}
	close(m.done)
}

func (m *Instance) info() InstanceInfo {
	return InstanceInfo{ID: m.id, Name: m.def.name}
}

// fields builds the structured part of a lifecycle log entry
func (m *Instance) fields(msgID string, extra Fields) Fields {
	f := Fields{
		FieldMessageID: msgID,
		FieldFSMID:     m.id,
	}
	if m.def.name != "" {
		f[FieldFSMName] = m.def.name
	}
	maps.Copy(f, extra)
	return f
}

func (m *Instance) text(msg string) string {
	if m.def.name == "" {
		return msg
	}
	return m.def.name + ": " + msg
}

func (m *Instance) logDebug(msgID, msg string, extra Fields) {
	m.def.log.Debug.call(m.text(msg), m.fields(msgID, extra))
}

func (m *Instance) logWarn(msgID, msg string, extra Fields) {
	m.def.log.Warn.call(m.text(msg), m.fields(msgID, extra))
}

func (m *Instance) logError(msgID, msg string, extra Fields) {
	m.def.log.Error.call(m.text(msg), m.fields(msgID, extra))
}
