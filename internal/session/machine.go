package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"statusfeed/internal/models"
	"statusfeed/internal/observability"
	"statusfeed/internal/validation"
)

const component = "session"

// Machine holds the single session of the app. Transitions are serialized;
// at most one pending transition exists at a time.
type Machine struct {
	mu            sync.Mutex
	state         State
	pending       *Transition
	rules         Rules
	defaultAvatar string
	observers     []func(State)
	logger        *observability.IntentLogger
}

// Option configures a Machine.
type Option func(*Machine)

// WithDefaultAvatar sets the avatar given to new profiles.
func WithDefaultAvatar(url string) Option {
	return func(m *Machine) { m.defaultAvatar = url }
}

// WithObserver registers fn to be called with the new state after every
// transition, including ones resolved later by a timer. fn runs outside
// the machine's lock.
func WithObserver(fn func(State)) Option {
	return func(m *Machine) { m.observers = append(m.observers, fn) }
}

// NewMachine returns a machine in the anonymous phase.
func NewMachine(rules Rules, opts ...Option) *Machine {
	if rules == nil {
		rules = StaticRules{}
	}
	m := &Machine{
		state:         State{Phase: PhaseAnonymous},
		rules:         rules,
		defaultAvatar: models.DefaultAvatarURL,
		logger:        observability.NewIntentLogger(component),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current session state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// BeginSignUp moves from the login screen to the sign-up form, clearing any
// stale credential fields.
func (m *Machine) BeginSignUp(ctx context.Context) error {
	return m.apply(ctx, "begin_sign_up", PhaseAnonymous, func(State) State {
		return State{Phase: PhaseSigningUp}
	})
}

// CancelSignUp returns from the sign-up form to the login screen.
func (m *Machine) CancelSignUp(ctx context.Context) error {
	return m.apply(ctx, "cancel_sign_up", PhaseSigningUp, func(State) State {
		return State{Phase: PhaseAnonymous}
	})
}

// Logout clears the profile and all credentials.
func (m *Machine) Logout(ctx context.Context) error {
	return m.apply(ctx, "logout", PhaseAuthenticated, func(State) State {
		return State{Phase: PhaseAnonymous}
	})
}

// SetAvatar replaces the signed-in user's avatar.
func (m *Machine) SetAvatar(ctx context.Context, url string) (models.UserProfile, error) {
	var profile models.UserProfile
	err := m.apply(ctx, "set_avatar", PhaseAuthenticated, func(s State) State {
		s.Profile.AvatarURL = url
		profile = s.Profile
		return s
	})
	return profile, err
}

// Login signs in from the anonymous phase. Validation failures leave the
// state untouched.
func (m *Machine) Login(ctx context.Context, username, password string) (*Transition, error) {
	const intent = "login"
	m.mu.Lock()
	if err := m.guard(intent, PhaseAnonymous); err != nil {
		m.mu.Unlock()
		m.logger.LogRejected(ctx, intent, err)
		return nil, err
	}

	username = strings.TrimSpace(username)
	if err := validation.ValidateLogin(username, password, m.rules.PasswordPolicy(username)); err != nil {
		m.mu.Unlock()
		appErr := models.NewValidationError("Login Failed", userMessage(err))
		m.logger.LogRejected(ctx, intent, appErr)
		return nil, appErr
	}

	target := State{
		Phase: PhaseAuthenticated,
		Profile: models.UserProfile{
			FirstName: username,
			Username:  username,
			AvatarURL: m.defaultAvatar,
		},
	}
	return m.begin(ctx, newTransition(m, intent, target, models.Notice{}), m.rules.Latency(username)), nil
}

// SubmitSignUp completes sign-up. On validation failure the machine stays
// in the sign-up phase with the submitted fields kept for correction.
func (m *Machine) SubmitSignUp(ctx context.Context, form Form) (*Transition, error) {
	const intent = "submit_sign_up"
	m.mu.Lock()
	if err := m.guard(intent, PhaseSigningUp); err != nil {
		m.mu.Unlock()
		m.logger.LogRejected(ctx, intent, err)
		return nil, err
	}

	form.FirstName = strings.TrimSpace(form.FirstName)
	form.LastName = strings.TrimSpace(form.LastName)
	form.Username = strings.TrimSpace(form.Username)
	m.state.Form = form

	if err := validation.ValidateSignUp(form.fields(), m.rules.PasswordPolicy(form.Username)); err != nil {
		state := m.state
		m.mu.Unlock()
		appErr := models.NewValidationError("Sign Up Failed", userMessage(err))
		m.logger.LogRejected(ctx, intent, appErr)
		m.notify(state)
		return nil, appErr
	}

	profile := models.UserProfile{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Username:  form.Username,
		AvatarURL: m.defaultAvatar,
	}
	notice := models.Notice{
		Title:   "Sign Up Successful",
		Message: fmt.Sprintf("Welcome, %s %s!", form.FirstName, form.LastName),
	}
	target := State{Phase: PhaseAuthenticated, Profile: profile}
	return m.begin(ctx, newTransition(m, intent, target, notice), m.rules.Latency(form.Username)), nil
}

// guard must be called with m.mu held.
func (m *Machine) guard(intent string, want Phase) error {
	if m.pending != nil {
		return models.NewPendingError(strings.ReplaceAll(intent, "_", " "))
	}
	if m.state.Phase != want {
		return models.NewInvalidTransitionError(string(m.state.Phase), strings.ReplaceAll(intent, "_", " "))
	}
	return nil
}

func (m *Machine) apply(ctx context.Context, intent string, want Phase, fn func(State) State) error {
	m.mu.Lock()
	if err := m.guard(intent, want); err != nil {
		m.mu.Unlock()
		m.logger.LogRejected(ctx, intent, err)
		return err
	}
	m.state = fn(m.state)
	state := m.state
	m.mu.Unlock()

	m.logger.LogIntent(ctx, intent, map[string]interface{}{"phase": string(state.Phase)})
	m.notify(state)
	return nil
}

// begin is called with m.mu held and releases it.
func (m *Machine) begin(ctx context.Context, t *Transition, delay time.Duration) *Transition {
	if delay <= 0 {
		m.state = t.target
		t.state = t.target
		close(t.done)
		state := m.state
		m.mu.Unlock()

		m.logger.LogIntent(ctx, t.intent, map[string]interface{}{
			"phase":    string(state.Phase),
			"username": state.Profile.Username,
		})
		m.notify(state)
		return t
	}

	m.state.Pending = true
	m.pending = t
	t.finish = observability.TrackTransition(t.intent)
	fields := map[string]interface{}{"delay_ms": delay.Milliseconds()}
	observability.LogAsyncOperationStart(ctx, t.intent, fields)
	bg := context.WithoutCancel(ctx)
	t.timer = time.AfterFunc(delay, func() { m.resolve(bg, t) })
	state := m.state
	m.mu.Unlock()

	m.notify(state)
	return t
}

func (m *Machine) resolve(ctx context.Context, t *Transition) {
	m.mu.Lock()
	if m.pending != t {
		m.mu.Unlock()
		return
	}
	m.pending = nil
	m.state = t.target
	t.state = t.target
	close(t.done)
	state := m.state
	m.mu.Unlock()

	t.finish("ok")
	observability.LogAsyncOperationEnd(ctx, t.intent, map[string]interface{}{
		"phase":    string(state.Phase),
		"username": state.Profile.Username,
	})
	m.notify(state)
}

func (m *Machine) cancel(t *Transition) bool {
	m.mu.Lock()
	if m.pending != t {
		m.mu.Unlock()
		return false
	}
	t.timer.Stop()
	m.pending = nil
	m.state.Pending = false
	t.state = m.state
	t.err = ErrTransitionCancelled
	close(t.done)
	state := m.state
	m.mu.Unlock()

	t.finish("cancelled")
	m.notify(state)
	return true
}

func (m *Machine) notify(state State) {
	for _, fn := range m.observers {
		fn(state)
	}
}

// userMessage turns a validation error into sentence case for display.
func userMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
