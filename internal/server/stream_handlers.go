package server

import (
	"log"

	"statusfeed/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

var (
	healthResponse = fiber.Map{"status": "ok", "service": "statusfeed"}
	pingResponse   = fiber.Map{"message": "pong"}
)

// Health handles GET /health.
func (s *Server) Health(c *fiber.Ctx) error {
	return c.JSON(healthResponse)
}

// Ping handles GET /ping.
func (s *Server) Ping(c *fiber.Ctx) error {
	return c.JSON(pingResponse)
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// ViewStreamHandler returns a websocket handler that sends the current view
// on connect and every new view after that, as JSON text frames. Incoming
// messages are ignored; the stream ends when the client disconnects or the
// app shuts down.
func (s *Server) ViewStreamHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		sub, err := s.app.Subscribe()
		if err != nil {
			log.Printf("view stream: subscribe failed: %v", err)
			_ = conn.WriteJSON(ErrorResponse{Error: err.Error()})
			_ = conn.Close()
			return
		}
		defer sub.Close()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case v, ok := <-sub.C:
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
					return
				}
				if err := conn.WriteJSON(v); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	})
}
