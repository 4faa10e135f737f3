// Package script replays a YAML list of user intents against an App. It is
// used by cmd/feedsim to exercise the feed without a UI.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"statusfeed/internal/app"
	"statusfeed/internal/models"
	"statusfeed/internal/session"

	"gopkg.in/yaml.v3"
)

// Intent names accepted in a script.
const (
	IntentLogin            = "login"
	IntentBeginSignUp      = "begin_sign_up"
	IntentCancelSignUp     = "cancel_sign_up"
	IntentSubmitSignUp     = "submit_sign_up"
	IntentLogout           = "logout"
	IntentPickProfileImage = "pick_profile_image"
	IntentSetDraft         = "set_draft"
	IntentAddPost          = "add_post"
	IntentToggleLike       = "toggle_like"
	IntentOpenCommentBox   = "open_comment_box"
	IntentSetCommentDraft  = "set_comment_draft"
	IntentAddComment       = "add_comment"
	IntentAddShare         = "add_share"
	IntentNavigate         = "navigate"
)

// ErrUnknownIntent is returned for a step whose intent is not recognised.
var ErrUnknownIntent = errors.New("unknown intent")

// Script is a named sequence of steps.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one intent and its arguments. Post refers to a post either by id
// or, with a leading '#', by its index in the current feed ("#0" is the
// newest post). ExpectError is the AppError code the step must fail with.
type Step struct {
	Intent      string      `yaml:"intent"`
	Username    string      `yaml:"username,omitempty"`
	Password    string      `yaml:"password,omitempty"`
	Form        *SignUpForm `yaml:"form,omitempty"`
	Text        string      `yaml:"text,omitempty"`
	Post        string      `yaml:"post,omitempty"`
	Screen      string      `yaml:"screen,omitempty"`
	Image       string      `yaml:"image,omitempty"`
	ImageDenied bool        `yaml:"image_denied,omitempty"`
	ExpectError string      `yaml:"expect_error,omitempty"`
}

// SignUpForm is the sign-up form as written in a script.
type SignUpForm struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// Result records what happened when a step ran.
type Result struct {
	Index  int           `json:"index"`
	Intent string        `json:"intent"`
	Notice models.Notice `json:"notice,omitzero"`
	Error  string        `json:"error,omitempty"`
}

// Parse decodes a script. Unknown keys are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("script is empty")
		}
		return nil, fmt.Errorf("decode script: %w", err)
	}
	for i, step := range s.Steps {
		if !knownIntent(step.Intent) {
			return nil, fmt.Errorf("step %d: %w %q", i, ErrUnknownIntent, step.Intent)
		}
	}
	return &s, nil
}

// ParseFile reads and decodes the script at path.
func ParseFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Run executes every step in order against a. Sign-in transitions are
// awaited before the next step. Run stops at the first step whose outcome
// differs from its ExpectError.
func (s *Script) Run(ctx context.Context, a *app.App) ([]Result, error) {
	results := make([]Result, 0, len(s.Steps))
	for i, step := range s.Steps {
		notice, err := step.apply(ctx, a)
		res := Result{Index: i, Intent: step.Intent, Notice: notice}
		if err != nil {
			res.Error = err.Error()
			var appErr *models.AppError
			if errors.As(err, &appErr) && res.Notice.IsZero() {
				res.Notice = appErr.Notice()
			}
		}
		results = append(results, res)

		switch {
		case step.ExpectError == "" && err != nil:
			return results, fmt.Errorf("step %d (%s): %w", i, step.Intent, err)
		case step.ExpectError != "" && !models.HasCode(err, step.ExpectError):
			return results, fmt.Errorf("step %d (%s): expected %s, got %v", i, step.Intent, step.ExpectError, err)
		}
	}
	return results, nil
}

func (st Step) apply(ctx context.Context, a *app.App) (models.Notice, error) {
	switch st.Intent {
	case IntentLogin:
		t, err := a.Login(ctx, st.Username, st.Password)
		return await(ctx, t, err)
	case IntentBeginSignUp:
		return models.Notice{}, a.BeginSignUp(ctx)
	case IntentCancelSignUp:
		return models.Notice{}, a.CancelSignUp(ctx)
	case IntentSubmitSignUp:
		var form session.Form
		if st.Form != nil {
			form = session.Form{
				FirstName: st.Form.FirstName,
				LastName:  st.Form.LastName,
				Username:  st.Form.Username,
				Password:  st.Form.Password,
			}
		}
		t, err := a.SubmitSignUp(ctx, form)
		return await(ctx, t, err)
	case IntentLogout:
		return models.Notice{}, a.Logout(ctx)
	case IntentPickProfileImage:
		picker := app.ImagePicker(app.StaticPicker(st.Image))
		if st.ImageDenied {
			picker = app.PickerFunc(func(context.Context) (string, error) { return "", app.ErrPickerDenied })
		}
		_, err := a.PickProfileImage(ctx, picker)
		return models.Notice{}, err
	case IntentSetDraft:
		return models.Notice{}, a.SetDraft(ctx, st.Text)
	case IntentAddPost:
		_, err := a.AddPost(ctx, st.Text)
		return models.Notice{}, err
	case IntentToggleLike:
		return models.Notice{}, a.ToggleLike(ctx, resolvePost(a, st.Post))
	case IntentOpenCommentBox:
		return models.Notice{}, a.OpenCommentBox(ctx, resolvePost(a, st.Post))
	case IntentSetCommentDraft:
		return models.Notice{}, a.SetCommentDraft(ctx, st.Text)
	case IntentAddComment:
		return models.Notice{}, a.AddComment(ctx, resolvePost(a, st.Post), st.Text)
	case IntentAddShare:
		return a.AddShare(ctx, resolvePost(a, st.Post))
	case IntentNavigate:
		return models.Notice{}, a.Navigate(ctx, app.Screen(st.Screen))
	}
	return models.Notice{}, fmt.Errorf("%w %q", ErrUnknownIntent, st.Intent)
}

func await(ctx context.Context, t *session.Transition, err error) (models.Notice, error) {
	if err != nil {
		return models.Notice{}, err
	}
	if _, err := t.Wait(ctx); err != nil {
		return models.Notice{}, err
	}
	_, notice, err := t.Result()
	return notice, err
}

// resolvePost turns "#N" into the id of the N-th post in the current feed.
// Anything else is returned as is.
func resolvePost(a *app.App, ref string) string {
	if !strings.HasPrefix(ref, "#") {
		return ref
	}
	n, err := strconv.Atoi(ref[1:])
	if err != nil {
		return ref
	}
	snap := a.View().Feed
	if n < 0 || n >= snap.Len() {
		return ref
	}
	return snap.At(n).ID
}

func knownIntent(intent string) bool {
	switch intent {
	case IntentLogin, IntentBeginSignUp, IntentCancelSignUp, IntentSubmitSignUp, IntentLogout,
		IntentPickProfileImage, IntentSetDraft, IntentAddPost, IntentToggleLike,
		IntentOpenCommentBox, IntentSetCommentDraft, IntentAddComment, IntentAddShare,
		IntentNavigate:
		return true
	}
	return false
}
