package web

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/tagserver/internal/log"
	"github.com/teslashibe/tagserver/pkg/hub"
	"github.com/teslashibe/tagserver/pkg/metrics"
	"github.com/teslashibe/tagserver/pkg/tagservice"
)

// DetectionEvent is broadcast to /ws/detections observers after every
// successful detection
type DetectionEvent struct {
	EventID    string                       `json:"event_id"`
	RequestID  string                       `json:"request_id"`
	Time       time.Time                    `json:"time"`
	Family     string                       `json:"family"`
	Count      int                          `json:"count"`
	Detections []tagservice.DetectionRecord `json:"detections"`
}

// HealthResponse is the /healthz body
type HealthResponse struct {
	Status    string `json:"status"`
	Family    string `json:"family"`
	Observers int    `json:"observers"`
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// observe records per-route metrics
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	// Errors are rendered by the ErrorHandler after this returns
	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}

	route := c.Route().Path
	if route == "" || route == "/" {
		route = "other"
	}
	metrics.RecordRequest(route, status, time.Since(start))
	return err
}

// handlePing is a liveness probe independent of the detector
func (s *Server) handlePing(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.SendString("pong")
}

// handleHealth reports the configured family and observer count
func (s *Server) handleHealth(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(HealthResponse{
		Status:    "ok",
		Family:    s.detector.Family(),
		Observers: s.events.ClientCount(),
	})
}

// handleDetect reads the multipart "image" field and returns detections
func (s *Server) handleDetect(c *fiber.Ctx) error {
	l := log.With("request_id", requestID(c), "route", "/detect")

	if s.limiter != nil && !s.limiter.Allow() {
		metrics.RecordDetectError("rate_limited")
		return errorJSON(c, fiber.StatusTooManyRequests, "Too many requests")
	}

	header, err := c.FormFile("image")
	if err != nil {
		metrics.RecordDetectError(tagservice.Kind(tagservice.ErrMissingImage))
		l.Info("detect rejected", "reason", "missing image field")
		return errorJSON(c, fiber.StatusBadRequest, tagservice.MsgMissingImage)
	}

	if s.config.MaxImageBytes > 0 && header.Size > int64(s.config.MaxImageBytes) {
		metrics.RecordDetectError(tagservice.Kind(tagservice.ErrImageTooLarge))
		l.Info("detect rejected", "reason", "image too large", "bytes", header.Size)
		return errorJSON(c, fiber.StatusRequestEntityTooLarge, tagservice.MsgImageTooLarge)
	}

	f, err := header.Open()
	if err != nil {
		l.Error("open upload", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, tagservice.MsgDetection)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		l.Error("read upload", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, tagservice.MsgDetection)
	}

	start := time.Now()
	resp, err := s.detector.Detect(c.UserContext(), data)
	if err != nil {
		status := tagservice.StatusCode(err)
		metrics.RecordDetectError(tagservice.Kind(err))
		if status >= http.StatusInternalServerError {
			l.Error("detect failed", "error", err, "bytes", len(data))
		} else {
			l.Info("detect rejected", "error", err, "bytes", len(data))
		}
		return errorJSON(c, status, tagservice.Message(err))
	}

	l.Info("detect",
		"filename", header.Filename,
		"bytes", len(data),
		"markers", len(resp.Detections),
		"duration", time.Since(start))

	s.publish(requestID(c), resp)
	return c.JSON(resp)
}

func (s *Server) publish(reqID string, resp *tagservice.DetectionResponse) {
	if s.events.ClientCount() == 0 {
		return
	}
	event := DetectionEvent{
		EventID:    uuid.NewString(),
		RequestID:  reqID,
		Time:       time.Now().UTC(),
		Family:     s.detector.Family(),
		Count:      len(resp.Detections),
		Detections: resp.Detections,
	}
	if err := s.events.BroadcastJSON(event); err != nil {
		log.Warn("broadcast detection event", "error", err)
	}
}

// handleDetectionsWS streams detection events to an observer
func (s *Server) handleDetectionsWS(c *websocket.Conn) {
	hub.NewClient(s.events, c).Run()
}
