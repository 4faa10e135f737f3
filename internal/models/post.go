package models

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrEmptyText is returned when a post or comment has no content.
	ErrEmptyText = errors.New("text must not be empty")
	// ErrMissingID is returned when a post is built without an id.
	ErrMissingID = errors.New("post id is required")
)

// Post is a single feed entry. Values are treated as immutable once they
// are part of a feed snapshot; use the With* helpers to derive changes.
type Post struct {
	ID                 string    `json:"id"`
	Author             Author    `json:"author"`
	Text               string    `json:"text"`
	LikeCount          int       `json:"like_count"`
	LikedByCurrentUser bool      `json:"liked"`
	Comments           []Comment `json:"comments"`
	ShareCount         int       `json:"share_count"`
	CreatedAt          time.Time `json:"created_at"`
}

// Comment is appended to a post and never edited.
type Comment struct {
	Text           string    `json:"text"`
	AuthorUsername string    `json:"author_username"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewPost builds a fresh post with zeroed counters.
func NewPost(id string, author Author, text string, now time.Time) (Post, error) {
	if id == "" {
		return Post{}, ErrMissingID
	}
	if strings.TrimSpace(text) == "" {
		return Post{}, ErrEmptyText
	}
	return Post{
		ID:        id,
		Author:    author,
		Text:      text,
		Comments:  []Comment{},
		CreatedAt: now,
	}, nil
}

// NewComment builds a comment, rejecting blank text.
func NewComment(text, authorUsername string, now time.Time) (Comment, error) {
	if strings.TrimSpace(text) == "" {
		return Comment{}, ErrEmptyText
	}
	return Comment{Text: text, AuthorUsername: authorUsername, CreatedAt: now}, nil
}

// WithLikeToggled returns a copy with the like flag flipped and the count
// adjusted to match.
func (p Post) WithLikeToggled() Post {
	if p.LikedByCurrentUser {
		p.LikedByCurrentUser = false
		if p.LikeCount > 0 {
			p.LikeCount--
		}
	} else {
		p.LikedByCurrentUser = true
		p.LikeCount++
	}
	return p
}

// WithShare returns a copy with one more share.
func (p Post) WithShare() Post {
	p.ShareCount++
	return p
}

// WithComment returns a copy with c appended. The receiver's comment slice
// is left untouched.
func (p Post) WithComment(c Comment) Post {
	comments := make([]Comment, len(p.Comments), len(p.Comments)+1)
	copy(comments, p.Comments)
	p.Comments = append(comments, c)
	return p
}

// WithAvatar returns a copy whose author avatar is url.
func (p Post) WithAvatar(url string) Post {
	p.Author.AvatarURL = url
	return p
}

// Clone returns a deep copy safe to hand to callers.
func (p Post) Clone() Post {
	comments := make([]Comment, len(p.Comments))
	copy(comments, p.Comments)
	p.Comments = comments
	return p
}
