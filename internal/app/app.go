// Package app is the composition root of statusfeed. An App owns one
// session, one feed and the transient UI state, and publishes a new View
// after every change.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"statusfeed/internal/featureflags"
	"statusfeed/internal/feed"
	"statusfeed/internal/models"
	"statusfeed/internal/notifications"
	"statusfeed/internal/observability"
	"statusfeed/internal/session"
	"statusfeed/internal/validation"
)

const component = "app"

// Options configures a new App. Zero values fall back to sensible defaults.
type Options struct {
	Store            *feed.Store
	Flags            *featureflags.Manager
	Latency          time.Duration
	DefaultAvatarURL string
	SubscriberBuffer int
}

// App holds all state of a running statusfeed instance.
type App struct {
	session *session.Machine
	feed    *feed.Store
	hub     *notifications.Hub[View]
	flags   *featureflags.Manager
	logger  *observability.IntentLogger

	uiMu sync.Mutex
	ui   UIState

	// pubMu keeps published views in the order the changes happened.
	pubMu sync.Mutex
}

// New wires a session machine, a feed store and a view hub together.
func New(opts Options) *App {
	store := opts.Store
	if store == nil {
		store = feed.NewStore()
	}
	avatar := opts.DefaultAvatarURL
	if avatar == "" {
		avatar = models.DefaultAvatarURL
	}

	a := &App{
		feed:   store,
		hub:    notifications.NewHub[View]("view", opts.SubscriberBuffer),
		flags:  opts.Flags,
		logger: observability.NewIntentLogger(component),
		ui:     UIState{Screen: ScreenFeed},
	}
	a.session = session.NewMachine(
		flagRules{flags: opts.Flags, latency: opts.Latency},
		session.WithDefaultAvatar(avatar),
		session.WithObserver(a.onSessionChange),
	)
	return a
}

// Feed returns the underlying post store.
func (a *App) Feed() *feed.Store {
	return a.feed
}

// Flags returns the feature flag manager, which may be nil.
func (a *App) Flags() *featureflags.Manager {
	return a.flags
}

// View returns the current view.
func (a *App) View() View {
	st := a.session.State()
	v := View{Session: st, UI: a.uiState()}
	if st.Authenticated() {
		v.Feed = a.feed.Snapshot()
	}
	return v
}

// Subscribe registers for future views. The current view is delivered
// immediately so a new subscriber never starts empty.
func (a *App) Subscribe() (*notifications.Subscriber[View], error) {
	sub, err := a.hub.Subscribe()
	if err != nil {
		return nil, err
	}
	a.publish()
	return sub, nil
}

// Shutdown closes every subscription.
func (a *App) Shutdown() {
	a.hub.Shutdown()
}

// Login starts a sign-in. The returned transition is already resolved unless
// simulated latency applies to the user.
func (a *App) Login(ctx context.Context, username, password string) (*session.Transition, error) {
	ctx, finish := a.track(ctx, "login")
	t, err := a.session.Login(ctx, username, password)
	return t, finish(err)
}

// BeginSignUp switches from the login screen to the sign-up form.
func (a *App) BeginSignUp(ctx context.Context) error {
	ctx, finish := a.track(ctx, "begin_sign_up")
	return finish(a.session.BeginSignUp(ctx))
}

// CancelSignUp returns to the login screen.
func (a *App) CancelSignUp(ctx context.Context) error {
	ctx, finish := a.track(ctx, "cancel_sign_up")
	return finish(a.session.CancelSignUp(ctx))
}

// SubmitSignUp creates a profile from the form and signs the user in.
func (a *App) SubmitSignUp(ctx context.Context, form session.Form) (*session.Transition, error) {
	ctx, finish := a.track(ctx, "submit_sign_up")
	t, err := a.session.SubmitSignUp(ctx, form)
	return t, finish(err)
}

// Logout signs the user out. Posts are kept.
func (a *App) Logout(ctx context.Context) error {
	ctx, finish := a.track(ctx, "logout")
	return finish(a.session.Logout(ctx))
}

// PickProfileImage asks picker for an image and, if one is chosen, makes it
// the user's avatar on the profile and on every post they authored. It
// reports whether the avatar changed.
func (a *App) PickProfileImage(ctx context.Context, picker ImagePicker) (bool, error) {
	ctx, finish := a.track(ctx, "pick_profile_image")
	profile, err := a.requireAuth("pick_profile_image")
	if err != nil {
		return false, finish(err)
	}

	uri, err := picker.Pick(ctx)
	switch {
	case errors.Is(err, ErrPickerCancelled):
		a.logger.LogIgnored(ctx, "pick_profile_image", err)
		return false, finish(nil)
	case errors.Is(err, ErrPickerDenied):
		return false, finish(models.NewPermissionDeniedError(
			"Permission to access the photo library is required.", err))
	case err != nil:
		return false, finish(err)
	case uri == "":
		a.logger.LogIgnored(ctx, "pick_profile_image", ErrPickerCancelled)
		return false, finish(nil)
	}

	if _, err := a.session.SetAvatar(ctx, uri); err != nil {
		return false, finish(err)
	}
	_, updated := a.feed.SyncAvatarForUsername(ctx, profile.Username, uri)
	a.logger.LogIntent(ctx, "pick_profile_image", map[string]interface{}{
		"username":      profile.Username,
		"posts_updated": updated,
	})
	a.publish()
	return true, finish(nil)
}

// SetDraft stores the in-progress post text.
func (a *App) SetDraft(ctx context.Context, text string) error {
	_, finish := a.track(ctx, "set_draft")
	if _, err := a.requireAuth("set_draft"); err != nil {
		return finish(err)
	}
	a.updateUI(func(ui *UIState) { ui.DraftPost = text })
	return finish(nil)
}

// AddPost publishes text as a new post by the signed-in user and clears the
// draft.
func (a *App) AddPost(ctx context.Context, text string) (models.Post, error) {
	ctx, finish := a.track(ctx, "add_post")
	profile, err := a.requireAuth("add_post")
	if err != nil {
		return models.Post{}, finish(err)
	}
	post, _, err := a.feed.AddPost(ctx, text, profile.Author())
	if err != nil {
		return models.Post{}, finish(err)
	}
	a.updateUI(func(ui *UIState) { ui.DraftPost = "" })
	return post, finish(nil)
}

// ToggleLike flips the like state of a post. Unknown ids are ignored.
func (a *App) ToggleLike(ctx context.Context, postID string) error {
	ctx, finish := a.track(ctx, "toggle_like")
	if _, err := a.requireAuth("toggle_like"); err != nil {
		return finish(err)
	}
	_, err := a.feed.ToggleLike(ctx, postID)
	if a.ignored(ctx, "toggle_like", err) {
		finish(err)
		return nil
	}
	if err != nil {
		return finish(err)
	}
	a.publish()
	return finish(nil)
}

// OpenCommentBox makes postID the active comment target and clears the
// comment draft. Unknown ids are ignored.
func (a *App) OpenCommentBox(ctx context.Context, postID string) error {
	_, finish := a.track(ctx, "open_comment_box")
	if _, err := a.requireAuth("open_comment_box"); err != nil {
		return finish(err)
	}
	if _, ok := a.feed.Snapshot().Find(postID); !ok {
		err := models.NewNotFoundError("post", postID)
		a.ignored(ctx, "open_comment_box", err)
		finish(err)
		return nil
	}
	a.updateUI(func(ui *UIState) {
		ui.ActiveCommentPostID = postID
		ui.CommentDraft = ""
	})
	return finish(nil)
}

// SetCommentDraft stores the text typed into the open comment box.
func (a *App) SetCommentDraft(ctx context.Context, text string) error {
	_, finish := a.track(ctx, "set_comment_draft")
	if _, err := a.requireAuth("set_comment_draft"); err != nil {
		return finish(err)
	}
	a.updateUI(func(ui *UIState) { ui.CommentDraft = text })
	return finish(nil)
}

// AddComment appends a comment by the signed-in user and closes the comment
// box. Blank text is rejected with a validation error and changes nothing.
func (a *App) AddComment(ctx context.Context, postID, text string) error {
	ctx, finish := a.track(ctx, "add_comment")
	profile, err := a.requireAuth("add_comment")
	if err != nil {
		return finish(err)
	}
	_, err = a.feed.AddComment(ctx, postID, text, profile.Username)
	if a.ignored(ctx, "add_comment", err) {
		finish(err)
		return nil
	}
	if err != nil {
		return finish(err)
	}
	a.updateUI(func(ui *UIState) {
		ui.ActiveCommentPostID = ""
		ui.CommentDraft = ""
	})
	return finish(nil)
}

// AddShare increments the share count of a post and returns the
// confirmation to show. Unknown ids leave the feed unchanged but are still
// confirmed.
func (a *App) AddShare(ctx context.Context, postID string) (models.Notice, error) {
	ctx, finish := a.track(ctx, "add_share")
	if _, err := a.requireAuth("add_share"); err != nil {
		return models.Notice{}, finish(err)
	}
	_, err := a.feed.AddShare(ctx, postID)
	if a.ignored(ctx, "add_share", err) {
		finish(err)
		return SharedNotice, nil
	}
	if err != nil {
		return models.Notice{}, finish(err)
	}
	a.publish()
	return SharedNotice, finish(nil)
}

// Navigate switches between the feed and settings screens.
func (a *App) Navigate(ctx context.Context, screen Screen) error {
	_, finish := a.track(ctx, "navigate")
	if _, err := a.requireAuth("navigate"); err != nil {
		return finish(err)
	}
	if !screen.Valid() {
		return finish(models.NewValidationError("Navigation Failed", "Unknown screen "+string(screen)+"."))
	}
	a.updateUI(func(ui *UIState) { ui.Screen = screen })
	return finish(nil)
}

// track starts a span for intent and returns a function that ends it and
// counts the outcome. The function returns its argument unchanged.
func (a *App) track(ctx context.Context, intent string) (context.Context, func(error) error) {
	ctx = observability.EnsureCorrelationID(ctx)
	span, ctx := observability.StartIntent(ctx, component, intent)
	return ctx, func(err error) error {
		span.SetError(err)
		span.End()
		observability.RecordIntent(intent, outcome(err))
		var appErr *models.AppError
		if err != nil && !errors.As(err, &appErr) {
			a.logger.LogError(ctx, intent, err)
		}
		return err
	}
}

func (a *App) requireAuth(intent string) (models.UserProfile, error) {
	st := a.session.State()
	if !st.Authenticated() {
		return models.UserProfile{}, models.NewUnauthorizedError("sign in to " + intentLabel(intent))
	}
	return st.Profile, nil
}

// ignored reports whether err names a post that does not exist.
func (a *App) ignored(ctx context.Context, intent string, err error) bool {
	if !models.HasCode(err, models.CodeNotFound) {
		return false
	}
	a.logger.LogIgnored(ctx, intent, err)
	return true
}

func (a *App) uiState() UIState {
	a.uiMu.Lock()
	defer a.uiMu.Unlock()
	return a.ui
}

func (a *App) updateUI(fn func(*UIState)) {
	a.uiMu.Lock()
	fn(&a.ui)
	a.uiMu.Unlock()
	a.publish()
}

func (a *App) onSessionChange(st session.State) {
	if !st.Authenticated() {
		a.uiMu.Lock()
		a.ui = UIState{Screen: ScreenFeed}
		a.uiMu.Unlock()
	}
	a.publish()
}

func (a *App) publish() {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()
	a.hub.Publish(a.View())
}

// flagRules selects the password policy and sign-in latency per user from
// feature flags.
type flagRules struct {
	flags   *featureflags.Manager
	latency time.Duration
}

func (r flagRules) PasswordPolicy(username string) validation.Policy {
	if r.flags.Enabled(featureflags.StrongPasswords, username) {
		return validation.PolicyHardened
	}
	return validation.PolicyBasic
}

func (r flagRules) Latency(username string) time.Duration {
	if r.flags.Enabled(featureflags.SimulatedLatency, username) {
		return r.latency
	}
	return 0
}

func outcome(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return observability.Outcome(err, appErr.Code)
	}
	return observability.Outcome(err, "")
}
