package edfsm

// Listener wraps an input bus handler. Buses identify listeners by pointer,
// so the same *Listener passed to On must be passed to RemoveListener.
type Listener struct {
	fn func(payload any)
}

// NewListener wraps fn into a Listener
func NewListener(fn func(payload any)) *Listener {
	return &Listener{fn: fn}
}

// Handle delivers payload to the wrapped handler
func (l *Listener) Handle(payload any) {
	if l != nil && l.fn != nil {
		l.fn(payload)
	}
}

// InputBus is the event source states subscribe to
type InputBus interface {
	On(event EventID, l *Listener)
	RemoveListener(event EventID, l *Listener)
}

// OutputBus is the event sink states emit to. Emit reports whether at
// least one listener consumed the event.
type OutputBus interface {
	Emit(event EventID, payload any) bool
}

// nopBus stands in for buses the definition was not given
type nopBus struct{}

func (nopBus) On(EventID, *Listener)             {}
func (nopBus) RemoveListener(EventID, *Listener) {}
func (nopBus) Emit(EventID, any) bool            { return false }

// subscription is one input bus registration made by an activation
type subscription struct {
	event    EventID
	listener *Listener
}
