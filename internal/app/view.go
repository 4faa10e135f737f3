package app

import (
	"context"
	"errors"
	"strings"

	"statusfeed/internal/feed"
	"statusfeed/internal/models"
	"statusfeed/internal/session"
)

// Screen is the page shown while signed in.
type Screen string

const (
	ScreenFeed     Screen = "feed"
	ScreenSettings Screen = "settings"
)

// Valid reports whether s is a known screen.
func (s Screen) Valid() bool {
	return s == ScreenFeed || s == ScreenSettings
}

// UIState is transient presentation state. It is reset whenever the user
// leaves the authenticated phase.
type UIState struct {
	Screen              Screen `json:"screen"`
	DraftPost           string `json:"draft_post"`
	ActiveCommentPostID string `json:"active_comment_post_id,omitempty"`
	CommentDraft        string `json:"comment_draft"`
}

// View is everything the presentation layer needs to render. Feed is empty
// unless the session is authenticated.
type View struct {
	Session session.State `json:"session"`
	Feed    feed.Snapshot `json:"feed"`
	UI      UIState       `json:"ui"`
}

// SharedNotice confirms a share.
var SharedNotice = models.Notice{Title: "Shared!", Message: "You have shared this post."}

var (
	// ErrPickerDenied means the user refused access to the image library.
	ErrPickerDenied = errors.New("image library permission denied")
	// ErrPickerCancelled means the picker closed without a selection.
	ErrPickerCancelled = errors.New("image selection cancelled")
)

// ImagePicker lets the user choose a local image and returns its URI.
type ImagePicker interface {
	Pick(ctx context.Context) (string, error)
}

// PickerFunc adapts a function to ImagePicker.
type PickerFunc func(ctx context.Context) (string, error)

// Pick implements ImagePicker.
func (f PickerFunc) Pick(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticPicker always returns the same URI.
type StaticPicker string

// Pick implements ImagePicker.
func (p StaticPicker) Pick(context.Context) (string, error) {
	if p == "" {
		return "", ErrPickerCancelled
	}
	return string(p), nil
}

func intentLabel(intent string) string {
	return strings.ReplaceAll(intent, "_", " ")
}
