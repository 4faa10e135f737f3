// Package models contains data structures for the application's domain models.
package models

import "strings"

// DefaultAvatarURL is used until the user picks a profile image.
const DefaultAvatarURL = "https://randomuser.me/api/portraits/men/44.jpg"

// UserProfile is the signed-in user's profile for the lifetime of a session.
type UserProfile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// DisplayName returns "First Last", or the username when no name is set.
func (p UserProfile) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name == "" {
		return p.Username
	}
	return name
}

// Author is the snapshot of a profile stored on each post.
type Author struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Author returns the snapshot used when this profile creates a post.
func (p UserProfile) Author() Author {
	return Author{
		Name:      p.DisplayName(),
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
	}
}
