// Package middleware holds the Fiber middleware used by the local bridge.
package middleware

import (
	"log/slog"
	"time"

	"statusfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// ContextMiddleware copies the request ID assigned by the requestid
// middleware into the request context as the correlation ID, so every log
// line and span for the request shares it.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ctx = observability.WithCorrelationID(ctx, rid)
		} else {
			ctx = observability.EnsureCorrelationID(ctx)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware for logging requests using slog
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("correlation_id", observability.ExtractCorrelationID(c.UserContext())),
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.GlobalLogger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.GlobalLogger.InfoContext(c.UserContext(), "request processed", fields...)
		}

		return err
	}
}
