// Package web serves the marker detection HTTP API
package web

import (
	"context"
	"net"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/teslashibe/tagserver/internal/log"
	"github.com/teslashibe/tagserver/pkg/hub"
	"github.com/teslashibe/tagserver/pkg/tagservice"
	"golang.org/x/time/rate"
)

const requestIDKey = "requestid"

// Detector is the detection capability the handlers call into
type Detector interface {
	Detect(ctx context.Context, image []byte) (*tagservice.DetectionResponse, error)
	Family() string
}

// Config holds server settings
type Config struct {
	Addr          string  // host:port
	MaxImageBytes int     // Largest accepted image, 0 keeps fiber's 4 MiB body limit
	RateLimit     float64 // /detect requests per second, 0 disables
}

// Server is the detection API server
type Server struct {
	app      *fiber.App
	config   Config
	detector Detector
	limiter  *rate.Limiter

	// Detection results fan out to /ws/detections observers
	events *hub.Hub
}

// NewServer creates a server around an injected detector
func NewServer(cfg Config, detector Detector) *Server {
	s := &Server{
		config:   cfg,
		detector: detector,
		events:   hub.New("detections"),
	}

	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	// Leave headroom for multipart framing around the image itself
	bodyLimit := 0
	if cfg.MaxImageBytes > 0 {
		bodyLimit = cfg.MaxImageBytes + 64*1024
	}

	app := fiber.New(fiber.Config{
		AppName:               "tagserver",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			msg := "Internal server error"
			switch {
			case code == fiber.StatusRequestEntityTooLarge:
				msg = tagservice.MsgImageTooLarge
			case code < fiber.StatusInternalServerError:
				msg = err.Error()
			}
			return c.Status(code).JSON(fiber.Map{"error": msg})
		},
	})

	// observe wraps recover so handler panics are still counted
	app.Use(s.observe)
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	app.Use(cors.New())

	app.Post("/detect", s.handleDetect)
	app.Get("/ping", s.handlePing)
	app.Get("/healthz", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/detections", websocket.New(s.handleDetectionsWS))

	s.app = app
	return s
}

// App exposes the fiber app for tests and embedding
func (s *Server) App() *fiber.App {
	return s.app
}

// Events returns the detection event hub
func (s *Server) Events() *hub.Hub {
	return s.events
}

// Start runs the server on the configured address until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve runs the server on an existing listener until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	log.Info("detection server listening",
		"addr", ln.Addr().String(),
		"family", s.detector.Family(),
		"max_image_bytes", s.config.MaxImageBytes,
		"rate_limit", s.config.RateLimit)

	go s.events.Run()
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the server, waiting up to timeout for
// in-flight requests
func (s *Server) Shutdown(timeout time.Duration) error {
	s.events.Close()
	return s.app.ShutdownWithTimeout(timeout)
}
