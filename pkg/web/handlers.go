package web

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-sightguide/pkg/hub"
	"github.com/teslashibe/go-sightguide/pkg/sensorfusion"
)

// MotionSample is the accelerometer payload sent by browsers, in m/s².
type MotionSample struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

var errBadSample = errors.New("x, y and z must be finite numbers")

// toSample validates m and stamps it with at.
func (m MotionSample) toSample(at time.Time) (sensorfusion.Sample, error) {
	if m.X == nil || m.Y == nil || m.Z == nil {
		return sensorfusion.Sample{}, errBadSample
	}
	for _, v := range []float64{*m.X, *m.Y, *m.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return sensorfusion.Sample{}, errBadSample
		}
	}
	return sensorfusion.Sample{X: *m.X, Y: *m.Y, Z: *m.Z, At: at}, nil
}

// handleIndex serves the accessible status page
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

// handleHealth reports liveness and collaborator state
func (s *Server) handleHealth(c *fiber.Ctx) error {
	narratorOK := false
	if n := s.getNarrator(); n != nil {
		narratorOK = n.IsOperational()
	}
	return c.JSON(fiber.Map{
		"status":         "ok",
		"uptime_s":       int(time.Since(s.started).Seconds()),
		"status_clients": s.statusHub.ClientCount(),
		"status_hub":     s.statusHub.Stats(),
		"updates":        s.published.Load(),
		"narrator_ok":    narratorOK,
		"motion_dropped": s.motion.Dropped(),
	})
}

// handleStatus returns the latest pipeline update
func (s *Server) handleStatus(c *fiber.Ctx) error {
	u, ok := s.Last()
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no frames processed yet",
		})
	}
	return c.JSON(u)
}

// handleNarratorReset clears a narrator failure so speech resumes
func (s *Server) handleNarratorReset(c *fiber.Ctx) error {
	n := s.getNarrator()
	if n == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "narrator not configured",
		})
	}
	n.Reset()
	s.logger.Info("narrator reset requested", "operational", n.IsOperational())
	return c.JSON(fiber.Map{"operational": n.IsOperational()})
}

// handleMotion accepts a single accelerometer sample
func (s *Server) handleMotion(c *fiber.Ctx) error {
	var m MotionSample
	if err := c.BodyParser(&m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	sample, err := m.toSample(time.Now())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": s.motion.Push(sample)})
}

// handleStatusWS streams pipeline updates, starting with the latest one
func (s *Server) handleStatusWS(c *websocket.Conn) {
	var initial []hub.Message
	if u, ok := s.Last(); ok {
		if msg, err := hub.Encode(u); err == nil {
			initial = append(initial, msg)
		}
	}

	client := hub.NewClient(s.statusHub, c, initial...)
	if client == nil {
		return
	}
	client.Run()
}

// handleMotionWS reads accelerometer samples until the connection closes
func (s *Server) handleMotionWS(c *websocket.Conn) {
	s.logger.Info("motion client connected")
	defer s.logger.Info("motion client disconnected")

	invalid := 0
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		var m MotionSample
		if err := json.Unmarshal(data, &m); err != nil {
			invalid++
			continue
		}
		sample, err := m.toSample(time.Now())
		if err != nil {
			invalid++
			if invalid%50 == 1 {
				s.logger.Warn("ignoring invalid motion samples", "invalid", invalid)
			}
			continue
		}
		s.motion.Push(sample)
	}
}
