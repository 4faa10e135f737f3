package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"statusfeed/internal/featureflags"
	"statusfeed/internal/models"
	"statusfeed/internal/notifications"
	"statusfeed/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = time.Second

var janeForm = session.Form{FirstName: "Jane", LastName: "Doe", Username: "janedoe", Password: "Abcdefg1"}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.HasCode(err, code), "expected %s, got %v", code, err)
}

// signedIn returns an App with Jane Doe signed in.
func signedIn(t *testing.T, opts Options) *App {
	t.Helper()
	ctx := context.Background()
	a := New(opts)
	require.NoError(t, a.BeginSignUp(ctx))
	tr, err := a.SubmitSignUp(ctx, janeForm)
	require.NoError(t, err)
	_, err = tr.Wait(ctx)
	require.NoError(t, err)
	require.True(t, a.View().Session.Authenticated())
	return a
}

// waitForView drains sub until a view matching fn arrives.
func waitForView(t *testing.T, sub *notifications.Subscriber[View], fn func(View) bool) View {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case v, ok := <-sub.C:
			require.True(t, ok, "subscription closed")
			if fn(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for view")
			return View{}
		}
	}
}

func TestApp_JaneDoeScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := New(Options{})

	require.NoError(t, a.BeginSignUp(ctx))
	tr, err := a.SubmitSignUp(ctx, janeForm)
	require.NoError(t, err)
	<-tr.Done()
	st, notice, err := tr.Result()
	require.NoError(t, err)
	assert.Equal(t, session.PhaseAuthenticated, st.Phase)
	assert.Equal(t, models.Notice{Title: "Sign Up Successful", Message: "Welcome, Jane Doe!"}, notice)

	post, err := a.AddPost(ctx, "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", post.Author.Name)
	assert.Equal(t, "janedoe", post.Author.Username)
	assert.Equal(t, models.DefaultAvatarURL, post.Author.AvatarURL)

	require.NoError(t, a.ToggleLike(ctx, post.ID))
	got := a.View().Feed.At(0)
	assert.Equal(t, 1, got.LikeCount)
	assert.True(t, got.LikedByCurrentUser)

	require.NoError(t, a.ToggleLike(ctx, post.ID))
	got = a.View().Feed.At(0)
	assert.Equal(t, 0, got.LikeCount)
	assert.False(t, got.LikedByCurrentUser)
}

func TestApp_FeedIntentsRequireAuth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := New(Options{})

	tests := []struct {
		name string
		fn   func() error
	}{
		{"AddPost", func() error { _, err := a.AddPost(ctx, "hi"); return err }},
		{"ToggleLike", func() error { return a.ToggleLike(ctx, "x") }},
		{"AddComment", func() error { return a.AddComment(ctx, "x", "hi") }},
		{"AddShare", func() error { _, err := a.AddShare(ctx, "x"); return err }},
		{"OpenCommentBox", func() error { return a.OpenCommentBox(ctx, "x") }},
		{"SetDraft", func() error { return a.SetDraft(ctx, "x") }},
		{"Navigate", func() error { return a.Navigate(ctx, ScreenSettings) }},
		{"PickProfileImage", func() error {
			_, err := a.PickProfileImage(ctx, StaticPicker("file:///a.png"))
			return err
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assertCode(t, tt.fn(), models.CodeUnauthorized)
		})
	}
	assert.Equal(t, 0, a.Feed().Snapshot().Len())
}

func TestApp_ViewHidesFeedUntilAuthenticated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := signedIn(t, Options{})
	_, err := a.AddPost(ctx, "first")
	require.NoError(t, err)

	require.NoError(t, a.Logout(ctx))
	v := a.View()
	assert.Equal(t, session.PhaseAnonymous, v.Session.Phase)
	assert.Equal(t, 0, v.Feed.Len())
	assert.Equal(t, 1, a.Feed().Snapshot().Len())

	tr, err := a.Login(ctx, "bob", "whatever1")
	require.NoError(t, err)
	_, err = tr.Wait(ctx)
	require.NoError(t, err)

	v = a.View()
	require.Equal(t, 1, v.Feed.Len())
	assert.Equal(t, "first", v.Feed.At(0).Text)
}

func TestApp_UnknownPostIsIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := signedIn(t, Options{})
	_, err := a.AddPost(ctx, "only")
	require.NoError(t, err)
	before := a.Feed().Snapshot()

	assert.NoError(t, a.ToggleLike(ctx, "missing"))
	assert.NoError(t, a.AddComment(ctx, "missing", "hi"))
	assert.NoError(t, a.OpenCommentBox(ctx, "missing"))
	notice, err := a.AddShare(ctx, "missing")
	assert.NoError(t, err)
	assert.Equal(t, SharedNotice, notice)

	after := a.Feed().Snapshot()
	assert.Equal(t, before.Version(), after.Version())
	assert.Empty(t, a.View().UI.ActiveCommentPostID)
}

func TestApp_AddPostClearsDraft(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := signedIn(t, Options{})

	require.NoError(t, a.SetDraft(ctx, "   "))
	_, err := a.AddPost(ctx, "   ")
	assertCode(t, err, models.CodeValidation)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.Notice{Title: "Post Failed", Message: "Please enter some text."}, appErr.Notice())
	assert.Equal(t, "   ", a.View().UI.DraftPost)
	assert.Equal(t, 0, a.View().Feed.Len())

	require.NoError(t, a.SetDraft(ctx, "hello"))
	_, err = a.AddPost(ctx, "hello")
	require.NoError(t, err)
	assert.Empty(t, a.View().UI.DraftPost)
	assert.Equal(t, 1, a.View().Feed.Len())
}

func TestApp_CommentFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := signedIn(t, Options{})
	post, err := a.AddPost(ctx, "post")
	require.NoError(t, err)

	require.NoError(t, a.OpenCommentBox(ctx, post.ID))
	require.NoError(t, a.SetCommentDraft(ctx, "nice"))
	ui := a.View().UI
	assert.Equal(t, post.ID, ui.ActiveCommentPostID)
	assert.Equal(t, "nice", ui.CommentDraft)

	// Blank comments are rejected and leave the box open.
	assertCode(t, a.AddComment(ctx, post.ID, "  "), models.CodeValidation)
	assert.Equal(t, post.ID, a.View().UI.ActiveCommentPostID)
	assert.Empty(t, a.View().Feed.At(0).Comments)

	require.NoError(t, a.AddComment(ctx, post.ID, "nice"))
	v := a.View()
	assert.Empty(t, v.UI.ActiveCommentPostID)
	assert.Empty(t, v.UI.CommentDraft)
	require.Len(t, v.Feed.At(0).Comments, 1)
	assert.Equal(t, "nice", v.Feed.At(0).Comments[0].Text)
	assert.Equal(t, "janedoe", v.Feed.At(0).Comments[0].AuthorUsername)

	// Reopening clears the draft.
	require.NoError(t, a.SetCommentDraft(ctx, "stale"))
	require.NoError(t, a.OpenCommentBox(ctx, post.ID))
	assert.Empty(t, a.View().UI.CommentDraft)
}

func TestApp_AddShare(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := signedIn(t, Options{})
	post, err := a.AddPost(ctx, "share me")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		notice, err := a.AddShare(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, SharedNotice, notice)
		assert.Equal(t, i, a.View().Feed.At(0).ShareCount)
	}
}

func TestApp_PickProfileImage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	const uri = "file:///photos/me.png"

	t.Run("Denied", func(t *testing.T) {
		t.Parallel()
		a := signedIn(t, Options{})
		picker := PickerFunc(func(context.Context) (string, error) {
			return "", ErrPickerDenied
		})
		changed, err := a.PickProfileImage(ctx, picker)
		assertCode(t, err, models.CodePermissionDenied)
		assert.ErrorIs(t, err, ErrPickerDenied)
		assert.False(t, changed)
		assert.Equal(t, models.DefaultAvatarURL, a.View().Session.Profile.AvatarURL)
	})

	t.Run("Cancelled", func(t *testing.T) {
		t.Parallel()
		a := signedIn(t, Options{})
		changed, err := a.PickProfileImage(ctx, StaticPicker(""))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, models.DefaultAvatarURL, a.View().Session.Profile.AvatarURL)
	})

	t.Run("UpdatesProfileAndOwnPosts", func(t *testing.T) {
		t.Parallel()
		a := signedIn(t, Options{})
		_, _, err := a.Feed().AddPost(ctx, "someone else", models.Author{Name: "Bob", Username: "bob", AvatarURL: "b.png"})
		require.NoError(t, err)
		_, err = a.AddPost(ctx, "mine")
		require.NoError(t, err)

		changed, err := a.PickProfileImage(ctx, StaticPicker(uri))
		require.NoError(t, err)
		assert.True(t, changed)

		v := a.View()
		assert.Equal(t, uri, v.Session.Profile.AvatarURL)
		assert.Equal(t, uri, v.Feed.At(0).Author.AvatarURL)
		assert.Equal(t, "b.png", v.Feed.At(1).Author.AvatarURL)

		next, err := a.AddPost(ctx, "after")
		require.NoError(t, err)
		assert.Equal(t, uri, next.Author.AvatarURL)
	})
}

func TestApp_NavigateAndLogoutResetsUI(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := signedIn(t, Options{})
	post, err := a.AddPost(ctx, "p")
	require.NoError(t, err)

	require.NoError(t, a.Navigate(ctx, ScreenSettings))
	assert.Equal(t, ScreenSettings, a.View().UI.Screen)
	assertCode(t, a.Navigate(ctx, Screen("profile")), models.CodeValidation)
	assert.Equal(t, ScreenSettings, a.View().UI.Screen)

	require.NoError(t, a.SetDraft(ctx, "draft"))
	require.NoError(t, a.OpenCommentBox(ctx, post.ID))
	require.NoError(t, a.Logout(ctx))

	assert.Equal(t, UIState{Screen: ScreenFeed}, a.View().UI)
}

func TestApp_StrongPasswordsFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name     string
		flags    string
		password string
		wantErr  bool
	}{
		{"Basic Accepts Any Password", "", "abc12345", false},
		{"Hardened Rejects Weak Password", "strong_passwords=on", "abc12345", true},
		{"Hardened Accepts Strong Password", "strong_passwords=on", "Abcdefg1", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := New(Options{Flags: featureflags.NewManager(tt.flags)})
			tr, err := a.Login(ctx, "alice", tt.password)
			if tt.wantErr {
				assertCode(t, err, models.CodeValidation)
				assert.Nil(t, tr)
				assert.Equal(t, session.PhaseAnonymous, a.View().Session.Phase)
				return
			}
			require.NoError(t, err)
			<-tr.Done()
			assert.True(t, a.View().Session.Authenticated())
		})
	}
}

func TestApp_SimulatedLatencyFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := New(Options{
		Flags:   featureflags.NewManager("simulated_latency=on"),
		Latency: 20 * time.Millisecond,
	})

	tr, err := a.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	v := a.View()
	assert.True(t, v.Session.Pending)
	assert.Equal(t, session.PhaseAnonymous, v.Session.Phase)

	_, err = a.AddPost(ctx, "too early")
	assertCode(t, err, models.CodeUnauthorized)
	_, err = a.Login(ctx, "alice", "pw")
	assertCode(t, err, models.CodePending)

	assert.Eventually(t, func() bool {
		return a.View().Session.Authenticated()
	}, testTimeout, 5*time.Millisecond)
	_, err = tr.Wait(ctx)
	assert.NoError(t, err)
}

func TestApp_SubscribersSeeChanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := signedIn(t, Options{SubscriberBuffer: 4})
	defer a.Shutdown()

	sub, err := a.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	first := waitForView(t, sub, func(View) bool { return true })
	assert.True(t, first.Session.Authenticated())

	_, err = a.AddPost(ctx, "broadcast")
	require.NoError(t, err)
	v := waitForView(t, sub, func(v View) bool { return v.Feed.Len() == 1 })
	assert.Equal(t, "broadcast", v.Feed.At(0).Text)

	require.NoError(t, a.Logout(ctx))
	v = waitForView(t, sub, func(v View) bool { return !v.Session.Authenticated() })
	assert.Equal(t, 0, v.Feed.Len())
}

func TestView_JSON(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := signedIn(t, Options{})
	_, err := a.AddPost(ctx, "json")
	require.NoError(t, err)

	raw, err := json.Marshal(a.View())
	require.NoError(t, err)

	var decoded struct {
		Session struct {
			Phase   string `json:"phase"`
			Profile struct {
				Username string `json:"username"`
			} `json:"profile"`
			Form map[string]interface{} `json:"form"`
		} `json:"session"`
		Feed struct {
			Version uint64 `json:"version"`
			Posts   []struct {
				Text string `json:"text"`
			} `json:"posts"`
		} `json:"feed"`
		UI struct {
			Screen string `json:"screen"`
		} `json:"ui"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "authenticated", decoded.Session.Phase)
	assert.Equal(t, "janedoe", decoded.Session.Profile.Username)
	assert.NotContains(t, decoded.Session.Form, "password")
	require.Len(t, decoded.Feed.Posts, 1)
	assert.Equal(t, "json", decoded.Feed.Posts[0].Text)
	assert.Equal(t, "feed", decoded.UI.Screen)
}
