package server

import (
	"statusfeed/internal/app"
	"statusfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TextRequest carries free text: a post, a comment or a draft.
type TextRequest struct {
	Text string `json:"text"`
}

// ScreenRequest is the body of PUT /api/ui/screen.
type ScreenRequest struct {
	Screen string `json:"screen"`
}

// AddPost handles POST /api/posts.
func (s *Server) AddPost(c *fiber.Ctx) error {
	var req TextRequest
	if !parseBody(c, &req) {
		return nil
	}
	if _, err := s.app.AddPost(c.UserContext(), req.Text); err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, models.Notice{})
}

// ToggleLike handles POST /api/posts/:id/like.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	if err := s.app.ToggleLike(c.UserContext(), c.Params("id")); err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, models.Notice{})
}

// OpenCommentBox handles POST /api/posts/:id/comment-box.
func (s *Server) OpenCommentBox(c *fiber.Ctx) error {
	if err := s.app.OpenCommentBox(c.UserContext(), c.Params("id")); err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, models.Notice{})
}

// AddComment handles POST /api/posts/:id/comments.
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req TextRequest
	if !parseBody(c, &req) {
		return nil
	}
	if err := s.app.AddComment(c.UserContext(), c.Params("id"), req.Text); err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, models.Notice{})
}

// AddShare handles POST /api/posts/:id/share.
func (s *Server) AddShare(c *fiber.Ctx) error {
	notice, err := s.app.AddShare(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, notice)
}

// SetDraft handles PUT /api/ui/draft.
func (s *Server) SetDraft(c *fiber.Ctx) error {
	var req TextRequest
	if !parseBody(c, &req) {
		return nil
	}
	if err := s.app.SetDraft(c.UserContext(), req.Text); err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, models.Notice{})
}

// SetCommentDraft handles PUT /api/ui/comment-draft.
func (s *Server) SetCommentDraft(c *fiber.Ctx) error {
	var req TextRequest
	if !parseBody(c, &req) {
		return nil
	}
	if err := s.app.SetCommentDraft(c.UserContext(), req.Text); err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, models.Notice{})
}

// Navigate handles PUT /api/ui/screen.
func (s *Server) Navigate(c *fiber.Ctx) error {
	var req ScreenRequest
	if !parseBody(c, &req) {
		return nil
	}
	if err := s.app.Navigate(c.UserContext(), app.Screen(req.Screen)); err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, models.Notice{})
}
