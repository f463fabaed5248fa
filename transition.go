package edfsm

// OutcomeKind classifies how a state activation ends
type OutcomeKind int

const (
	// OutcomeEnd proceeds to the terminal state without an error
	OutcomeEnd OutcomeKind = iota
	// OutcomeGoto proceeds to another regular state
	OutcomeGoto
	// OutcomeFail proceeds to the terminal state carrying an error
	OutcomeFail
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeGoto:
		return "goto"
	case OutcomeFail:
		return "fail"
	default:
		return "end"
	}
}

// Outcome is the value a state resolves its transition trigger with
type Outcome struct {
	kind  OutcomeKind
	state StateID
	err   error
}

// Goto moves the machine to the regular state name
func Goto(name StateID) Outcome {
	return Outcome{kind: OutcomeGoto, state: name}
}

// End moves the machine to the terminal state without an error
func End() Outcome {
	return Outcome{kind: OutcomeEnd}
}

// Fail moves the machine to the terminal state, threading err into the
// terminal handler. Fail(nil) is the same as End().
func Fail(err error) Outcome {
	if err == nil {
		return End()
	}
	return Outcome{kind: OutcomeFail, err: err}
}

// Kind returns the outcome's kind
func (o Outcome) Kind() OutcomeKind {
	return o.kind
}

// State returns the target state of a Goto outcome
func (o Outcome) State() StateID {
	return o.state
}

// Err returns the error of a Fail outcome
func (o Outcome) Err() error {
	return o.err
}

// target returns where the outcome leads and the error handed along
func (o Outcome) target() (StateRef, error) {
	switch o.kind {
	case OutcomeGoto:
		return Regular(o.state), nil
	case OutcomeFail:
		return Terminal(), o.err
	default:
		return Terminal(), nil
	}
}
