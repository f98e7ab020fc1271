package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mounts the live session socket. Guards run before the
// upgrade and may reject the request, e.g. for a session the caller does not own.
func RegisterRoutes(r fiber.Router, hub *Hub, guards ...fiber.Handler) {
	handlers := append([]fiber.Handler{requireUpgrade}, guards...)
	handlers = append(handlers, websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("sessionID"))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
	r.Get("/ws/:sessionID", handlers...)
}

func requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}
