package server

import (
	"context"
	"log"

	"statusfeed/internal/app"
	"statusfeed/internal/models"
	"statusfeed/internal/session"

	"github.com/gofiber/fiber/v2"
)

// LoginRequest is the body of POST /api/session/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignUpRequest is the body of POST /api/session/signup.
type SignUpRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// ProfileImageRequest is the body of POST /api/profile/image. The client
// runs the picker; an empty URI means the user cancelled.
type ProfileImageRequest struct {
	URI    string `json:"uri"`
	Denied bool   `json:"denied"`
}

// GetView returns the current view.
func (s *Server) GetView(c *fiber.Ctx) error {
	return c.JSON(s.app.View())
}

// GetFeatureFlags returns configured feature flags and their state for the
// signed-in user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	flags := s.app.Flags()
	if flags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	username := s.app.View().Session.Profile.Username
	return c.JSON(fiber.Map{
		"raw":       flags.Raw(),
		"evaluated": flags.Snapshot(username),
	})
}

// Login handles POST /api/session/login. It answers 202 while simulated
// latency keeps the sign-in pending.
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if !parseBody(c, &req) {
		return nil
	}
	t, err := s.app.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondWithError(c, err)
	}
	return s.respondTransition(c, t)
}

// BeginSignUp handles POST /api/session/signup/begin.
func (s *Server) BeginSignUp(c *fiber.Ctx) error {
	if err := s.app.BeginSignUp(c.UserContext()); err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, models.Notice{})
}

// CancelSignUp handles POST /api/session/signup/cancel.
func (s *Server) CancelSignUp(c *fiber.Ctx) error {
	if err := s.app.CancelSignUp(c.UserContext()); err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, models.Notice{})
}

// SubmitSignUp handles POST /api/session/signup.
func (s *Server) SubmitSignUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if !parseBody(c, &req) {
		return nil
	}
	t, err := s.app.SubmitSignUp(c.UserContext(), session.Form{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Password:  req.Password,
	})
	if err != nil {
		return respondWithError(c, err)
	}
	return s.respondTransition(c, t)
}

// CancelPending handles POST /api/session/pending/cancel. It answers 204
// when there is nothing left to cancel.
func (s *Server) CancelPending(c *fiber.Ctx) error {
	t := s.takePending()
	if t == nil || !t.Cancel() {
		return c.SendStatus(fiber.StatusNoContent)
	}
	log.Printf("Cancelled pending %s", t.Intent())
	return s.respond(c, models.Notice{})
}

// Logout handles POST /api/session/logout.
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.app.Logout(c.UserContext()); err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, models.Notice{})
}

// PickProfileImage handles POST /api/profile/image.
func (s *Server) PickProfileImage(c *fiber.Ctx) error {
	var req ProfileImageRequest
	if !parseBody(c, &req) {
		return nil
	}
	picker := app.ImagePicker(app.StaticPicker(req.URI))
	if req.Denied {
		picker = app.PickerFunc(func(context.Context) (string, error) {
			return "", app.ErrPickerDenied
		})
	}
	if _, err := s.app.PickProfileImage(c.UserContext(), picker); err != nil {
		return respondWithError(c, err)
	}
	return s.respond(c, models.Notice{})
}

func (s *Server) respondTransition(c *fiber.Ctx, t *session.Transition) error {
	select {
	case <-t.Done():
		_, notice, err := t.Result()
		if err != nil {
			return respondWithError(c, err)
		}
		return s.respond(c, notice)
	default:
	}

	s.trackPending(t)
	return c.Status(fiber.StatusAccepted).JSON(IntentResponse{
		View:          s.app.View(),
		Pending:       true,
		PendingIntent: t.Intent(),
	})
}
