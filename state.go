package edfsm

// StateFunc is the handler of a regular state. It is invoked once per
// activation and must return without waiting for the state to end; the
// state ends when the activation's trigger is resolved through c.
type StateFunc func(c *Context)

// FinalFunc is the terminal handler. err is the error threaded in by the
// last regular state (nil when the run ended normally) and last is that
// state's name. The returned error is the outcome of the whole run.
type FinalFunc func(data any, err error, last StateID) error

// reraise is the default terminal handler: the run ends with whatever
// error reached the terminal state.
func reraise(_ any, err error, _ StateID) error {
	return err
}

// InstanceInfo identifies an instance to lifecycle hooks
type InstanceInfo struct {
	ID   uint64
	Name string
}

// Hooks observe an instance's lifecycle. All fields are optional.
// Hooks run on the goroutine driving the instance, except OnUnconsumed which
// runs wherever the state emitted.
type Hooks struct {
	OnCreate     func(info InstanceInfo)
	OnEnter      func(info InstanceInfo, state StateID)
	OnLeave      func(info InstanceInfo, state StateID, outcome Outcome)
	OnUnconsumed func(info InstanceInfo, event EventID)
	OnEnd        func(info InstanceInfo, err error)
}
