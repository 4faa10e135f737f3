// Package server exposes an App over HTTP and WebSocket so a local UI can
// drive it: REST endpoints for intents and a stream of views.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"statusfeed/internal/app"
	"statusfeed/internal/config"
	"statusfeed/internal/middleware"
	"statusfeed/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const shutdownTimeout = 5 * time.Second

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	app            *app.App
	fiber          *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	mu      sync.Mutex
	pending *session.Transition
}

// NewServer builds the HTTP application for a. Nothing listens until Start.
func NewServer(cfg *config.Config, a *app.App) *Server {
	s := &Server{
		config:         cfg,
		app:            a,
		promMiddleware: middleware.InitMetrics("statusfeed"),
	}

	f := fiber.New(fiber.Config{
		AppName:               "statusfeed",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message})
			}
			log.Printf("Error: %v", err)
			return respondWithError(c, err)
		},
	})
	s.fiber = f

	s.SetupMiddleware(f)
	s.SetupRoutes(f)
	return s
}

// Fiber returns the underlying Fiber application.
func (s *Server) Fiber() *fiber.App {
	return s.fiber
}

// SetupMiddleware installs the middleware chain.
func (s *Server) SetupMiddleware(f *fiber.App) {
	f.Use(recover.New())
	f.Use(requestid.New())
	f.Use(middleware.ContextMiddleware())
	if s.config != nil && s.config.TracingEnabled {
		f.Use(middleware.TracingMiddleware())
	}
	if s.promMiddleware != nil {
		f.Use(s.promMiddleware.Middleware)
	}
	f.Use(middleware.StructuredLogger())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(f *fiber.App) {
	f.Get("/health", s.Health)
	f.Get("/ping", s.Ping)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(f, "/metrics")
	}

	f.Use("/ws", requireUpgrade)
	f.Get("/ws", s.ViewStreamHandler())

	api := f.Group("/api")
	api.Get("/view", s.GetView)
	api.Get("/feature-flags", s.GetFeatureFlags)

	sess := api.Group("/session")
	sess.Post("/login", s.Login)
	sess.Post("/logout", s.Logout)
	sess.Post("/signup/begin", s.BeginSignUp)
	sess.Post("/signup/cancel", s.CancelSignUp)
	sess.Post("/signup", s.SubmitSignUp)
	sess.Post("/pending/cancel", s.CancelPending)

	api.Post("/profile/image", s.PickProfileImage)

	ui := api.Group("/ui")
	ui.Put("/draft", s.SetDraft)
	ui.Put("/comment-draft", s.SetCommentDraft)
	ui.Put("/screen", s.Navigate)

	posts := api.Group("/posts")
	posts.Post("/", s.AddPost)
	posts.Post("/:id/like", s.ToggleLike)
	posts.Post("/:id/comment-box", s.OpenCommentBox)
	posts.Post("/:id/comments", s.AddComment)
	posts.Post("/:id/share", s.AddShare)
}

// Start listens on the configured port and blocks until the server stops.
func (s *Server) Start() error {
	port := "8375"
	if s.config != nil && s.config.Port != "" {
		port = s.config.Port
	}
	log.Printf("Server starting on port %s...", port)
	return s.fiber.Listen(":" + port)
}

// Shutdown closes view streams and then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Shutdown()
	if err := s.fiber.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("error shutting down HTTP server: %w", err)
	}
	return nil
}

// Run starts the server and blocks until SIGINT or SIGTERM, then shuts
// down gracefully.
func (s *Server) Run() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return s.RunWithQuit(quit)
}

// RunWithQuit behaves like Run but waits on the provided channel instead of
// OS signals.
func (s *Server) RunWithQuit(quit <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// trackPending remembers t so it can be cancelled later.
func (s *Server) trackPending(t *session.Transition) {
	if t == nil {
		return
	}
	select {
	case <-t.Done():
		return
	default:
	}
	s.mu.Lock()
	s.pending = t
	s.mu.Unlock()
}

func (s *Server) takePending() *session.Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.pending
	s.pending = nil
	return t
}
