package main

import (
	"testing"
	"time"

	"github.com/librescoot/edfsm"
	"github.com/librescoot/edfsm/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settled reports whether inst is in state and that state's handler has
// made all its subscriptions; quit is always subscribed last
func settled(inst *edfsm.Instance, in *bus.Emitter, state edfsm.StateID) func() bool {
	return func() bool {
		return inst.Current() == edfsm.Regular(state) && in.ListenerCount(evQuit) == 1
	}
}

func TestTurnstileCycle(t *testing.T) {
	in, out := bus.NewEmitter(), bus.NewEmitter()
	var alarms []any
	out.On(evAlarm, edfsm.NewListener(func(p any) { alarms = append(alarms, p) }))

	ts := &Turnstile{}
	ended := make(chan error, 1)
	inst, err := newTurnstile(in, out, time.Hour).Run(ts, func(err error) { ended <- err })
	require.NoError(t, err)
	require.Eventually(t, settled(inst, in, stateLocked), time.Second, time.Millisecond)

	in.Emit(evPush, nil)
	assert.Equal(t, []any{1}, alarms)

	in.Emit(evCoin, nil)
	require.Eventually(t, settled(inst, in, stateUnlocked), time.Second, time.Millisecond)

	in.Emit(evPush, nil)
	require.Eventually(t, settled(inst, in, stateLocked), time.Second, time.Millisecond)

	in.Emit(evQuit, nil)
	require.NoError(t, <-ended)

	assert.Equal(t, Turnstile{Coins: 1, Passes: 1, Alarms: 1}, *ts)
}

func TestTurnstileRelocksAfterTimeout(t *testing.T) {
	in, out := bus.NewEmitter(), bus.NewEmitter()
	opened := make(chan any, 1)
	out.On(evOpen, edfsm.NewListener(func(p any) { opened <- p }))

	inst, err := newTurnstile(in, out, 10*time.Millisecond).Run(&Turnstile{}, nil)
	require.NoError(t, err)

	in.Emit(evCoin, nil)
	select {
	case p := <-opened:
		assert.Equal(t, 1, p)
	case <-time.After(time.Second):
		t.Fatal("turnstile never opened")
	}

	require.Eventually(t, settled(inst, in, stateLocked), time.Second, time.Millisecond)
	inst.Next(edfsm.End())
	<-inst.Done()
}

func TestTurnstileWrapsAbortError(t *testing.T) {
	in, out := bus.NewEmitter(), bus.NewEmitter()
	ended := make(chan error, 1)

	inst, err := newTurnstile(in, out, time.Hour).Run(&Turnstile{}, func(err error) { ended <- err })
	require.NoError(t, err)

	require.True(t, inst.Next(edfsm.Fail(assert.AnError)))
	err = <-ended
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "turnstile stopped while locked")
}
