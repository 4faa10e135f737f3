package models

// Notice is a user-facing message produced by an intent.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// IsZero reports whether the notice carries nothing to show.
func (n Notice) IsZero() bool {
	return n.Title == "" && n.Message == ""
}
