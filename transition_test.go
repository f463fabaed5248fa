package edfsm

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestOutcomeTargets(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		outcome Outcome
		kind    OutcomeKind
		ref     StateRef
		err     error
	}{
		{name: "goto", outcome: Goto(stateB), kind: OutcomeGoto, ref: Regular(stateB)},
		{name: "end", outcome: End(), kind: OutcomeEnd, ref: Terminal()},
		{name: "fail", outcome: Fail(boom), kind: OutcomeFail, ref: Terminal(), err: boom},
		{name: "fail without error", outcome: Fail(nil), kind: OutcomeEnd, ref: Terminal()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.outcome.Kind())
			ref, err := tt.outcome.target()
			assert.Equal(t, tt.ref, ref)
			assert.Equal(t, tt.err, err)
		})
	}
}

func TestStateRef(t *testing.T) {
	assert.Equal(t, "a", Regular(stateA).String())
	assert.False(t, Regular(stateA).IsTerminal())
	assert.True(t, Terminal().IsTerminal())
	assert.Equal(t, StateID(""), Terminal().Name())

	// a regular state may even be called like the terminal one
	assert.NotEqual(t, Terminal(), Regular("$final"))
}
