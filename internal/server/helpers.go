package server

import (
	"errors"

	"statusfeed/internal/app"
	"statusfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Title   string `json:"title,omitempty"`
	Details string `json:"details,omitempty"`
}

// IntentResponse is returned by every intent endpoint. Pending is set while
// a sign-in is still resolving; the view stream delivers the outcome.
type IntentResponse struct {
	View          app.View      `json:"view"`
	Notice        models.Notice `json:"notice,omitzero"`
	Pending       bool          `json:"pending,omitempty"`
	PendingIntent string        `json:"pending_intent,omitempty"`
}

var statusByCode = map[string]int{
	models.CodeValidation:        fiber.StatusBadRequest,
	models.CodeNotFound:          fiber.StatusNotFound,
	models.CodePermissionDenied:  fiber.StatusForbidden,
	models.CodeUnauthorized:      fiber.StatusUnauthorized,
	models.CodeInvalidTransition: fiber.StatusConflict,
	models.CodePending:           fiber.StatusConflict,
}

// respondWithError writes err as JSON. AppErrors map onto a status by code;
// anything else is an internal error.
func respondWithError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Internal server error",
			Code:    "INTERNAL_ERROR",
			Details: err.Error(),
		})
	}

	status, ok := statusByCode[appErr.Code]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	response := ErrorResponse{
		Error: appErr.Message,
		Code:  appErr.Code,
		Title: appErr.Title,
	}
	if appErr.Err != nil {
		response.Details = appErr.Err.Error()
	}
	return c.Status(status).JSON(response)
}

// parseBody decodes the JSON request body into dest, responding with 400 on
// failure. Callers return nil when ok is false.
func parseBody(c *fiber.Ctx, dest interface{}) bool {
	if len(c.Body()) == 0 {
		return true
	}
	if err := c.BodyParser(dest); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid request body",
			Code:  models.CodeValidation,
		})
		return false
	}
	return true
}

func (s *Server) respond(c *fiber.Ctx, notice models.Notice) error {
	return c.JSON(IntentResponse{View: s.app.View(), Notice: notice})
}
