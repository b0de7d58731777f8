package http

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// wsCommand is one client message on the progress socket.
type wsCommand struct {
	Type  string `json:"type"`
	JobID string `json:"job_id"`
}

func (s *Server) registerWebsocket(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/:client_id", websocket.New(s.progressSocket))
}

// progressSocket streams job events to one client. The client follows and
// unfollows jobs with subscribe/unsubscribe commands; delivery is best
// effort, a slow reader misses events rather than blocking publishers.
func (s *Server) progressSocket(conn *websocket.Conn) {
	clientID := conn.Params("client_id")
	logger := s.logger.With("client_id", clientID)

	sub := s.bus.Subscribe()

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for ev := range sub.C {
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug("websocket write failed", "error", err)
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			break
		}
		jobID, err := uuid.Parse(cmd.JobID)
		if err != nil {
			_ = conn.WriteJSON(ErrorResponse{
				Detail: "job_id is not a valid id",
				Code:   "INVALID_ID",
			})
			continue
		}
		switch cmd.Type {
		case "subscribe":
			sub.Follow(jobID)
		case "unsubscribe":
			sub.Unfollow(jobID)
		default:
			_ = conn.WriteJSON(ErrorResponse{
				Detail: "type must be subscribe or unsubscribe",
				Code:   "INVALID_TYPE",
			})
		}
	}

	sub.Close()
	writer.Wait()
}
