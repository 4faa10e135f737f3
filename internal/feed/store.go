// Package feed holds the in-memory post feed. Every mutation produces a new
// Snapshot; snapshots handed out earlier are never modified.
package feed

import (
	"context"
	"sync"
	"time"

	"statusfeed/internal/models"
	"statusfeed/internal/observability"

	"github.com/google/uuid"
)

const component = "feed"

// Store owns the ordered post sequence. Writers are serialized; readers get
// the current Snapshot without blocking on each other.
type Store struct {
	mu     sync.Mutex
	snap   Snapshot
	newID  func() string
	now    func() time.Time
	logger *observability.IntentLogger
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides how post ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock overrides the time source used for CreatedAt stamps.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// NewStore creates an empty feed. Post ids are UUIDv7, so they sort by
// creation time.
func NewStore(opts ...Option) *Store {
	s := &Store{
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
		now:    time.Now,
		logger: observability.NewIntentLogger(component),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current feed.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// AddPost prepends a new post written by author.
func (s *Store) AddPost(ctx context.Context, text string, author models.Author) (models.Post, Snapshot, error) {
	span, ctx := observability.StartIntent(ctx, component, "add_post")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	post, err := models.NewPost(s.newID(), author, text, s.now())
	if err != nil {
		span.SetError(err)
		return models.Post{}, s.snap, models.NewValidationError("Post Failed", "Please enter some text.")
	}

	s.snap = s.snap.prepend(post)
	observability.FeedPosts.Set(float64(s.snap.Len()))
	s.logger.LogIntent(ctx, "add_post", map[string]interface{}{
		"post_id":  post.ID,
		"username": author.Username,
	})
	return post.Clone(), s.snap, nil
}

// ToggleLike flips the current user's like on a post.
func (s *Store) ToggleLike(ctx context.Context, postID string) (Snapshot, error) {
	return s.update(ctx, "toggle_like", postID, func(p models.Post) (models.Post, error) {
		return p.WithLikeToggled(), nil
	})
}

// AddShare records one more share of a post.
func (s *Store) AddShare(ctx context.Context, postID string) (Snapshot, error) {
	return s.update(ctx, "add_share", postID, func(p models.Post) (models.Post, error) {
		return p.WithShare(), nil
	})
}

// AddComment appends a comment to a post.
func (s *Store) AddComment(ctx context.Context, postID, text, authorUsername string) (Snapshot, error) {
	return s.update(ctx, "add_comment", postID, func(p models.Post) (models.Post, error) {
		c, err := models.NewComment(text, authorUsername, s.now())
		if err != nil {
			return p, models.NewValidationError("Comment Failed", "Please enter some text.")
		}
		return p.WithComment(c), nil
	})
}

// SyncAvatarForUsername points the author avatar of every post written by
// username at url. It returns how many posts changed.
func (s *Store) SyncAvatarForUsername(ctx context.Context, username, url string) (Snapshot, int) {
	span, ctx := observability.StartIntent(ctx, component, "sync_avatar")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	var posts []models.Post
	changed := 0
	for i, p := range s.snap.posts {
		if p.Author.Username != username || p.Author.AvatarURL == url {
			continue
		}
		if posts == nil {
			posts = make([]models.Post, len(s.snap.posts))
			copy(posts, s.snap.posts)
		}
		posts[i] = p.WithAvatar(url)
		changed++
	}
	if changed == 0 {
		return s.snap, 0
	}

	s.snap = Snapshot{posts: posts, version: s.snap.version + 1}
	s.logger.LogIntent(ctx, "sync_avatar", map[string]interface{}{
		"username": username,
		"posts":    changed,
	})
	return s.snap, changed
}

func (s *Store) update(ctx context.Context, intent, postID string, fn func(models.Post) (models.Post, error)) (Snapshot, error) {
	span, ctx := observability.StartIntent(ctx, component, intent)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.snap.indexOf(postID)
	if i < 0 {
		err := models.NewNotFoundError("post", postID)
		span.SetError(err)
		return s.snap, err
	}

	updated, err := fn(s.snap.posts[i])
	if err != nil {
		span.SetError(err)
		return s.snap, err
	}

	s.snap = s.snap.replace(i, updated)
	s.logger.LogIntent(ctx, intent, map[string]interface{}{"post_id": postID})
	return s.snap, nil
}
