package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/ftahirops/xwake/util"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// handleStatus returns the latest reading.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	r, at := s.latest.Latest()
	if r == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no readings yet",
		})
	}
	return c.JSON(fiber.Map{
		"reading":    r,
		"level":      r.Level.String(),
		"elapsed":    util.Clock(r.Elapsed),
		"updated_at": at,
	})
}

// handleHistory returns recent readings, oldest first. ?n limits the count.
func (s *Server) handleHistory(c *fiber.Ctx) error {
	n := c.QueryInt("n", 0)
	return c.JSON(s.history.Recent(n))
}

// handleEpisodes returns the open episode and completed ones, newest first.
func (s *Server) handleEpisodes(c *fiber.Ctx) error {
	active, completed := s.episodes.All()
	return c.JSON(fiber.Map{
		"active":    active,
		"completed": completed,
	})
}

// handleReadingsWS streams every published reading to one client.
func (s *Server) handleReadingsWS(conn *websocket.Conn) {
	cl := newClient(64)
	if !s.hub.join(cl) {
		conn.Close()
		return
	}

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer func() {
			ticker.Stop()
			conn.Close()
		}()
		for {
			select {
			case msg, ok := <-cl.send:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.leave(cl)
	conn.Close()
}
