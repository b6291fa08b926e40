// tagserver - fiducial marker detection over HTTP
//
// Accepts an uploaded image on POST /detect and returns the AprilTag or
// ArUco markers found in it as JSON.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/tagserver/internal/config"
	"github.com/teslashibe/tagserver/internal/log"
	"github.com/teslashibe/tagserver/pkg/detection"
	"github.com/teslashibe/tagserver/pkg/tagservice"
	"github.com/teslashibe/tagserver/pkg/web"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	host := flag.String("host", cfg.Host, "Listen address")
	port := flag.String("port", cfg.Port, "Listen port")
	family := flag.String("family", cfg.Family, "Marker family: "+strings.Join(detection.Families(), ", "))
	maxImage := flag.Int("max-image-bytes", cfg.MaxImageBytes, "Largest accepted image upload")
	timeout := flag.Duration("detect-timeout", cfg.DetectTimeout, "Per-request detection timeout")
	maxInFlight := flag.Int("max-inflight", cfg.MaxInFlight, "Concurrent detections before /detect answers 503")
	rateLimit := flag.Float64("rate-limit", cfg.RateLimit, "Max /detect requests per second (0 = unlimited)")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	noRefine := flag.Bool("no-refine", false, "Disable sub-pixel corner refinement")
	flag.Parse()

	cfg.Host = *host
	cfg.Port = *port
	cfg.Family = *family
	cfg.MaxImageBytes = *maxImage
	cfg.DetectTimeout = *timeout
	cfg.MaxInFlight = *maxInFlight
	cfg.RateLimit = *rateLimit
	cfg.LogLevel = *logLevel

	log.Init(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	detector, err := detection.New(detection.Config{
		Family:           cfg.Family,
		CornerRefinement: !*noRefine,
	})
	if err != nil {
		log.Error("detector setup failed", "error", err, "families", detection.Families())
		os.Exit(1)
	}
	defer detector.Close()

	svc := tagservice.New(detector, tagservice.Config{
		MaxImageBytes: cfg.MaxImageBytes,
		DetectTimeout: cfg.DetectTimeout,
		MaxInFlight:   cfg.MaxInFlight,
	})

	server := web.NewServer(web.Config{
		Addr:          cfg.Addr(),
		MaxImageBytes: cfg.MaxImageBytes,
		RateLimit:     cfg.RateLimit,
	}, svc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("shutting down", "signal", sig.String())
		if err := server.Shutdown(shutdownTimeout); err != nil {
			log.Warn("shutdown", "error", err)
		}
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped", "error", err)
			detector.Close()
			os.Exit(1)
		}
	}
}
