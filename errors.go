package edfsm

import "github.com/pkg/errors"

var (
	// ErrNoFirstState is returned by Validate when no first state was given
	ErrNoFirstState = errors.New("no first state defined")
	// ErrUnknownState is routed to the terminal state when a transition
	// names a state that was never registered
	ErrUnknownState = errors.New("unknown state")
	// ErrEmptyStateName is recorded when State is called with an empty name
	ErrEmptyStateName = errors.New("empty state name")
)
