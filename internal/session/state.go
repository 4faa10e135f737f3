// Package session implements the sign-in state machine: anonymous, signing
// up, or authenticated, with an optional pending period that simulates
// network latency.
package session

import (
	"time"

	"statusfeed/internal/models"
	"statusfeed/internal/validation"
)

// Phase is the current step of the auth flow.
type Phase string

const (
	PhaseAnonymous     Phase = "anonymous"
	PhaseSigningUp     Phase = "signing_up"
	PhaseAuthenticated Phase = "authenticated"
)

// Form holds the sign-up fields while the user is on the sign-up screen.
type Form struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Password  string `json:"-"`
}

func (f Form) fields() validation.SignUpFields {
	return validation.SignUpFields{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Username:  f.Username,
		Password:  f.Password,
	}
}

// State is an immutable value describing the session. Form is only set while
// signing up and Profile only while authenticated.
type State struct {
	Phase   Phase              `json:"phase"`
	Pending bool               `json:"pending"`
	Form    Form               `json:"form"`
	Profile models.UserProfile `json:"profile"`
}

// Authenticated reports whether a user is signed in.
func (s State) Authenticated() bool {
	return s.Phase == PhaseAuthenticated
}

// Rules decide, per username, which password policy applies and how long
// the simulated sign-in latency lasts. A zero latency resolves immediately.
type Rules interface {
	PasswordPolicy(username string) validation.Policy
	Latency(username string) time.Duration
}

// StaticRules applies the same policy and latency to every user.
type StaticRules struct {
	Policy validation.Policy
	Delay  time.Duration
}

// PasswordPolicy implements Rules.
func (r StaticRules) PasswordPolicy(string) validation.Policy { return r.Policy }

// Latency implements Rules.
func (r StaticRules) Latency(string) time.Duration { return r.Delay }
