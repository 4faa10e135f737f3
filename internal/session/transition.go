package session

import (
	"context"
	"errors"
	"time"

	"statusfeed/internal/models"
)

// ErrTransitionCancelled resolves a pending transition that was cancelled
// before its latency elapsed.
var ErrTransitionCancelled = errors.New("session transition cancelled")

// Transition is the handle for a login or sign-up submission. It is done
// immediately when no latency applies; otherwise Done is closed once the
// scheduled resolution runs or the transition is cancelled.
type Transition struct {
	intent  string
	machine *Machine
	target  State
	notice  models.Notice
	timer   *time.Timer
	finish  func(outcome string)
	done    chan struct{}

	// written once under machine.mu before done is closed
	state State
	err   error
}

func newTransition(m *Machine, intent string, target State, notice models.Notice) *Transition {
	return &Transition{
		intent:  intent,
		machine: m,
		target:  target,
		notice:  notice,
		done:    make(chan struct{}),
	}
}

// Intent names the operation that started the transition.
func (t *Transition) Intent() string {
	return t.intent
}

// Done is closed when the transition has resolved or been cancelled.
func (t *Transition) Done() <-chan struct{} {
	return t.done
}

// Result returns the resolved state, the user-facing notice and the error,
// if any. It must only be called after Done is closed.
func (t *Transition) Result() (State, models.Notice, error) {
	if t.err != nil {
		return t.state, models.Notice{}, t.err
	}
	return t.state, t.notice, nil
}

// Wait blocks until the transition resolves or ctx is done.
func (t *Transition) Wait(ctx context.Context) (State, error) {
	select {
	case <-t.done:
		return t.state, t.err
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Cancel aborts a pending transition and restores the state it started
// from. It reports false if the transition had already resolved.
func (t *Transition) Cancel() bool {
	return t.machine.cancel(t)
}
