package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"statusfeed/internal/app"
	"statusfeed/internal/config"
	"statusfeed/internal/featureflags"
	"statusfeed/internal/models"
	"statusfeed/internal/session"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type viewJSON struct {
	Session session.State `json:"session"`
	Feed    struct {
		Version uint64        `json:"version"`
		Posts   []models.Post `json:"posts"`
	} `json:"feed"`
	UI app.UIState `json:"ui"`
}

type intentJSON struct {
	View          viewJSON      `json:"view"`
	Notice        models.Notice `json:"notice"`
	Pending       bool          `json:"pending"`
	PendingIntent string        `json:"pending_intent"`
}

func newTestServer(t *testing.T, opts app.Options) *Server {
	t.Helper()
	return NewServer(&config.Config{Port: "0"}, app.New(opts))
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.Fiber().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decodeIntent(t *testing.T, raw []byte) intentJSON {
	t.Helper()
	var out intentJSON
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func decodeError(t *testing.T, raw []byte) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func signUpJane(t *testing.T, s *Server) {
	t.Helper()
	resp, _ := doJSON(t, s, http.MethodPost, "/api/session/signup/begin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, raw := doJSON(t, s, http.MethodPost, "/api/session/signup", SignUpRequest{
		FirstName: "Jane", LastName: "Doe", Username: "janedoe", Password: "Abcdefg1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
}

func TestHealthAndPing(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, app.Options{})

	tests := []struct {
		path string
		want string
	}{
		{"/health", `"status":"ok"`},
		{"/ping", `"message":"pong"`},
	}
	for _, tt := range tests {
		tt := tt
		resp, raw := doJSON(t, s, http.MethodGet, tt.path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(raw), tt.want)
	}
}

func TestFeedFlow(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, app.Options{})

	resp, raw := doJSON(t, s, http.MethodGet, "/api/view", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v viewJSON
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Equal(t, session.PhaseAnonymous, v.Session.Phase)
	assert.Empty(t, v.Feed.Posts)

	resp, raw = doJSON(t, s, http.MethodPost, "/api/session/signup/begin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, raw = doJSON(t, s, http.MethodPost, "/api/session/signup", SignUpRequest{
		FirstName: "Jane", LastName: "Doe", Username: "janedoe", Password: "Abcdefg1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	out := decodeIntent(t, raw)
	assert.Equal(t, models.Notice{Title: "Sign Up Successful", Message: "Welcome, Jane Doe!"}, out.Notice)
	assert.True(t, out.View.Session.Authenticated())

	resp, raw = doJSON(t, s, http.MethodPost, "/api/posts", TextRequest{Text: "Hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	out = decodeIntent(t, raw)
	require.Len(t, out.View.Feed.Posts, 1)
	id := out.View.Feed.Posts[0].ID
	assert.Equal(t, "Jane Doe", out.View.Feed.Posts[0].Author.Name)

	resp, raw = doJSON(t, s, http.MethodPost, "/api/posts/"+id+"/like", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decodeIntent(t, raw)
	assert.Equal(t, 1, out.View.Feed.Posts[0].LikeCount)
	assert.True(t, out.View.Feed.Posts[0].LikedByCurrentUser)

	resp, raw = doJSON(t, s, http.MethodPost, "/api/posts/"+id+"/comment-box", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, decodeIntent(t, raw).View.UI.ActiveCommentPostID)

	resp, raw = doJSON(t, s, http.MethodPost, "/api/posts/"+id+"/comments", TextRequest{Text: "nice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decodeIntent(t, raw)
	require.Len(t, out.View.Feed.Posts[0].Comments, 1)
	assert.Empty(t, out.View.UI.ActiveCommentPostID)

	resp, raw = doJSON(t, s, http.MethodPost, "/api/posts/"+id+"/share", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decodeIntent(t, raw)
	assert.Equal(t, app.SharedNotice, out.Notice)
	assert.Equal(t, 1, out.View.Feed.Posts[0].ShareCount)

	resp, raw = doJSON(t, s, http.MethodPut, "/api/ui/screen", ScreenRequest{Screen: "settings"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, app.ScreenSettings, decodeIntent(t, raw).View.UI.Screen)

	resp, raw = doJSON(t, s, http.MethodPost, "/api/session/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decodeIntent(t, raw)
	assert.Equal(t, session.PhaseAnonymous, out.View.Session.Phase)
	assert.Empty(t, out.View.Feed.Posts)
	assert.Equal(t, app.ScreenFeed, out.View.UI.Screen)
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		signedIn   bool
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
		wantTitle  string
	}{
		{"Empty login", false, http.MethodPost, "/api/session/login", LoginRequest{}, http.StatusBadRequest, models.CodeValidation, "Login Failed"},
		{"Post while anonymous", false, http.MethodPost, "/api/posts", TextRequest{Text: "hi"}, http.StatusUnauthorized, models.CodeUnauthorized, ""},
		{"Logout while anonymous", false, http.MethodPost, "/api/session/logout", nil, http.StatusConflict, models.CodeInvalidTransition, ""},
		{"Blank post", true, http.MethodPost, "/api/posts", TextRequest{Text: "  "}, http.StatusBadRequest, models.CodeValidation, "Post Failed"},
		{"Image denied", true, http.MethodPost, "/api/profile/image", ProfileImageRequest{Denied: true}, http.StatusForbidden, models.CodePermissionDenied, "Permission Denied"},
		{"Unknown screen", true, http.MethodPut, "/api/ui/screen", ScreenRequest{Screen: "nope"}, http.StatusBadRequest, models.CodeValidation, "Navigation Failed"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t, app.Options{})
			if tt.signedIn {
				signUpJane(t, s)
			}
			resp, raw := doJSON(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, string(raw))
			e := decodeError(t, raw)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantTitle, e.Title)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestUnknownPostIsIgnored(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, app.Options{})
	signUpJane(t, s)

	resp, raw := doJSON(t, s, http.MethodPost, "/api/posts/missing/like", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	resp, raw = doJSON(t, s, http.MethodPost, "/api/posts/missing/share", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, app.SharedNotice, decodeIntent(t, raw).Notice)
}

func TestInvalidBody(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, app.Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/session/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Fiber().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPendingLoginCanBeCancelled(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, app.Options{
		Flags:   featureflags.NewManager("simulated_latency=on"),
		Latency: time.Hour,
	})

	resp, raw := doJSON(t, s, http.MethodPost, "/api/session/login", LoginRequest{Username: "bob", Password: "pw"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))
	out := decodeIntent(t, raw)
	assert.True(t, out.Pending)
	assert.Equal(t, "login", out.PendingIntent)
	assert.True(t, out.View.Session.Pending)

	resp, raw = doJSON(t, s, http.MethodPost, "/api/session/login", LoginRequest{Username: "bob", Password: "pw"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodePending, decodeError(t, raw).Code)

	resp, raw = doJSON(t, s, http.MethodPost, "/api/session/pending/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decodeIntent(t, raw)
	assert.False(t, out.View.Session.Pending)
	assert.Equal(t, session.PhaseAnonymous, out.View.Session.Phase)

	resp, _ = doJSON(t, s, http.MethodPost, "/api/session/pending/cancel", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestFeatureFlagsEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, app.Options{Flags: featureflags.NewManager("strong_passwords=on,simulated_latency=off")})

	resp, raw := doJSON(t, s, http.MethodGet, "/api/feature-flags", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "on", out.Raw[featureflags.StrongPasswords])
	assert.True(t, out.Evaluated[featureflags.StrongPasswords])
	assert.False(t, out.Evaluated[featureflags.SimulatedLatency])
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, app.Options{})
	doJSON(t, s, http.MethodPost, "/api/session/login", LoginRequest{})

	resp, raw := doJSON(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "statusfeed_intents_total")
}

func TestViewStreamRequiresUpgrade(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, app.Options{})
	resp, _ := doJSON(t, s, http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestViewStream(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, app.Options{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.Fiber().Listener(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() viewJSON {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var v viewJSON
		require.NoError(t, conn.ReadJSON(&v))
		return v
	}

	first := read()
	assert.Equal(t, session.PhaseAnonymous, first.Session.Phase)

	ctx := context.Background()
	tr, err := s.app.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	<-tr.Done()
	_, err = s.app.AddPost(ctx, "streamed")
	require.NoError(t, err)

	var v viewJSON
	for len(v.Feed.Posts) == 0 {
		v = read()
	}
	assert.True(t, v.Session.Authenticated())
	assert.Equal(t, "streamed", v.Feed.Posts[0].Text)
}
