package edfsm

import (
	"log/slog"

	"github.com/pkg/errors"
)

// Definition holds the FSM structure. It is assembled with the builder
// methods and must not be changed once Run has been called; after that it
// is read-only and may be shared by any number of instances.
type Definition struct {
	first  StateID
	states map[StateID]StateFunc
	final  FinalFunc
	name   string

	input  InputBus
	output OutputBus
	log    Log
	clock  Clock
	ids    IDGenerator
	hooks  Hooks

	errs []error
}

// Option configures a Definition
type Option func(*Definition)

// WithName sets the name used to prefix log messages
func WithName(name string) Option {
	return func(d *Definition) {
		d.name = name
	}
}

// WithInput sets the bus states subscribe to
func WithInput(bus InputBus) Option {
	return func(d *Definition) {
		d.input = bus
	}
}

// WithOutput sets the bus states emit to
func WithOutput(bus OutputBus) Option {
	return func(d *Definition) {
		d.output = bus
	}
}

// WithLog sets the lifecycle log channels
func WithLog(log Log) Option {
	return func(d *Definition) {
		d.log = log
	}
}

// WithSlog routes the lifecycle log to an slog.Logger
func WithSlog(logger *slog.Logger) Option {
	return WithLog(SlogLog(logger))
}

// WithClock replaces the clock used for state timeouts
func WithClock(clock Clock) Option {
	return func(d *Definition) {
		d.clock = clock
	}
}

// WithIDGenerator replaces the per-definition instance id counter
func WithIDGenerator(ids IDGenerator) Option {
	return func(d *Definition) {
		d.ids = ids
	}
}

// WithHooks sets the lifecycle hooks
func WithHooks(hooks Hooks) Option {
	return func(d *Definition) {
		d.hooks = hooks
	}
}

// New creates a definition whose runs start in state first
func New(first StateID, opts ...Option) *Definition {
	d := &Definition{
		first:  first,
		states: make(map[StateID]StateFunc),
		final:  reraise,
		input:  nopBus{},
		output: nopBus{},
		clock:  realClock{},
		ids:    NewCounter(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.input == nil {
		d.input = nopBus{}
	}
	if d.output == nil {
		d.output = nopBus{}
	}
	if d.clock == nil {
		d.clock = realClock{}
	}
	if d.ids == nil {
		d.ids = NewCounter()
	}
	return d
}

// State registers the handler of state name, replacing any earlier one
func (d *Definition) State(name StateID, fn StateFunc) *Definition {
	if name == "" {
		d.errs = append(d.errs, ErrEmptyStateName)
		return d
	}
	if fn == nil {
		d.errs = append(d.errs, errors.Errorf("state %q has no handler", name))
		return d
	}
	d.states[name] = fn
	return d
}

// Final overrides the terminal handler. A nil fn restores the default,
// which ends the run with the error that reached the terminal state.
func (d *Definition) Final(fn FinalFunc) *Definition {
	if fn == nil {
		fn = reraise
	}
	d.final = fn
	return d
}

// Name returns the definition's name
func (d *Definition) Name() string {
	return d.name
}

// Has reports whether state name is registered
func (d *Definition) Has(name StateID) bool {
	_, ok := d.states[name]
	return ok
}

// Validate checks the definition for errors
func (d *Definition) Validate() error {
	if len(d.errs) > 0 {
		return d.errs[0]
	}
	if d.first == "" {
		return ErrNoFirstState
	}
	if !d.Has(d.first) {
		return errors.Wrapf(ErrUnknownState, "first state %q", d.first)
	}
	return nil
}

// Run starts a new instance with data as its shared context. The first
// state's handler has been invoked by the time Run returns. onEnd, if not
// nil, is called exactly once with the outcome of the run.
func (d *Definition) Run(data any, onEnd func(err error)) (*Instance, error) {
	if err := d.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid definition")
	}

	m := newInstance(d, data, onEnd)
	m.start()
	return m, nil
}
