package main

import (
	"time"

	"github.com/librescoot/edfsm"
	"github.com/pkg/errors"
)

const (
	stateLocked   edfsm.StateID = "locked"
	stateUnlocked edfsm.StateID = "unlocked"
)

// Input events
const (
	evCoin edfsm.EventID = "coin"
	evPush edfsm.EventID = "push"
	evQuit edfsm.EventID = "quit"
)

// Output events
const (
	evOpen   edfsm.EventID = "open"
	evAlarm  edfsm.EventID = "alarm"
	evRefund edfsm.EventID = "refund"
)

// Turnstile is the run context of the demo machine
type Turnstile struct {
	Coins  int
	Passes int
	Alarms int
}

// newTurnstile builds a coin-operated turnstile. It unlocks on a coin and
// locks again after a pass or when nobody passes within unlockFor.
func newTurnstile(in edfsm.InputBus, out edfsm.OutputBus, unlockFor time.Duration, opts ...edfsm.Option) *edfsm.Definition {
	opts = append([]edfsm.Option{edfsm.WithInput(in), edfsm.WithOutput(out)}, opts...)

	return edfsm.New(stateLocked, opts...).
		State(stateLocked, func(c *edfsm.Context) {
			t := c.Data.(*Turnstile)
			c.On(evCoin, func(any) {
				t.Coins++
				c.Goto(stateUnlocked)
			})
			c.On(evPush, func(any) {
				t.Alarms++
				c.Emit(evAlarm, t.Alarms)
			})
			c.On(evQuit, func(any) {
				c.End()
			})
		}).
		State(stateUnlocked, func(c *edfsm.Context) {
			t := c.Data.(*Turnstile)
			c.Emit(evOpen, t.Coins)
			c.On(evPush, func(any) {
				t.Passes++
				c.Goto(stateLocked)
			})
			c.On(evCoin, func(any) {
				c.Emit(evRefund, nil)
			})
			c.On(evQuit, func(any) {
				c.End()
			})
			c.Timeout(unlockFor, edfsm.Goto(stateLocked))
		}).
		Final(func(data any, err error, last edfsm.StateID) error {
			if err != nil {
				return errors.Wrapf(err, "turnstile stopped while %s", last)
			}
			return nil
		})
}
