package feed

import (
	"encoding/json"

	"statusfeed/internal/models"
)

// Snapshot is an immutable view of the feed at one point in time. The zero
// value is an empty feed.
type Snapshot struct {
	posts   []models.Post
	version uint64
}

// Len returns the number of posts.
func (s Snapshot) Len() int {
	return len(s.posts)
}

// Version increases by one with every applied mutation.
func (s Snapshot) Version() uint64 {
	return s.version
}

// At returns a copy of the post at index i, newest first.
func (s Snapshot) At(i int) models.Post {
	return s.posts[i].Clone()
}

// Posts returns a deep copy of all posts, newest first.
func (s Snapshot) Posts() []models.Post {
	out := make([]models.Post, len(s.posts))
	for i, p := range s.posts {
		out[i] = p.Clone()
	}
	return out
}

// Find returns a copy of the post with the given id.
func (s Snapshot) Find(id string) (models.Post, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.posts[i].Clone(), true
	}
	return models.Post{}, false
}

func (s Snapshot) indexOf(id string) int {
	for i := range s.posts {
		if s.posts[i].ID == id {
			return i
		}
	}
	return -1
}

// prepend returns a new snapshot with p at the front.
func (s Snapshot) prepend(p models.Post) Snapshot {
	posts := make([]models.Post, 0, len(s.posts)+1)
	posts = append(posts, p)
	posts = append(posts, s.posts...)
	return Snapshot{posts: posts, version: s.version + 1}
}

// replace returns a new snapshot with the post at i swapped for p.
func (s Snapshot) replace(i int, p models.Post) Snapshot {
	posts := make([]models.Post, len(s.posts))
	copy(posts, s.posts)
	posts[i] = p
	return Snapshot{posts: posts, version: s.version + 1}
}

type snapshotJSON struct {
	Version uint64        `json:"version"`
	Posts   []models.Post `json:"posts"`
}

// MarshalJSON encodes the snapshot as {"version": n, "posts": [...]}.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	posts := s.posts
	if posts == nil {
		posts = []models.Post{}
	}
	return json.Marshal(snapshotJSON{Version: s.version, Posts: posts})
}
