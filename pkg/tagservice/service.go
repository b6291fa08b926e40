// Package tagservice turns uploaded image bytes into marker detection
// records. It owns the request-level policy around the detector: payload
// cap, decoding, per-request timeout, panic isolation and rounding.
package tagservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/tagserver/internal/log"
	"github.com/teslashibe/tagserver/pkg/detection"
	"github.com/teslashibe/tagserver/pkg/metrics"
	"gocv.io/x/gocv"
	"golang.org/x/sync/semaphore"
)

var errEmptyRaster = errors.New("not a decodable image")

// DefaultMaxInFlight bounds concurrent decode+detect workers.
const DefaultMaxInFlight = 4

// Config holds request limits.
type Config struct {
	MaxImageBytes int           // Reject larger payloads, 0 disables
	DetectTimeout time.Duration // Per-request deadline, 0 disables
	MaxInFlight   int           // Concurrent workers, including timed-out ones still running; 0 uses DefaultMaxInFlight
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		MaxImageBytes: 20 << 20,
		DetectTimeout: 10 * time.Second,
		MaxInFlight:   DefaultMaxInFlight,
	}
}

// Service runs detection requests against one process-wide detector.
type Service struct {
	detector detection.Detector
	config   Config
	slots    *semaphore.Weighted
	logger   *slog.Logger
}

// New creates a service around an already configured detector.
func New(detector detection.Detector, cfg Config) *Service {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	return &Service{
		detector: detector,
		config:   cfg,
		slots:    semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		logger:   log.With("component", "tagservice", "family", detector.Family()),
	}
}

// Family returns the detector's marker family.
func (s *Service) Family() string {
	return s.detector.Family()
}

type outcome struct {
	markers []detection.Marker
	err     error
}

// Detect decodes the image as grayscale and returns one record per marker,
// in detector order.
func (s *Service) Detect(ctx context.Context, image []byte) (*DetectionResponse, error) {
	if len(image) == 0 {
		return nil, ErrMissingImage
	}
	if s.config.MaxImageBytes > 0 && len(image) > s.config.MaxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(image), s.config.MaxImageBytes)
	}

	if s.config.DetectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.DetectTimeout)
		defer cancel()
	}

	// A timed-out worker keeps its slot until the native call returns.
	if !s.slots.TryAcquire(1) {
		s.logger.Warn("detection rejected, workers busy", "max_inflight", s.config.MaxInFlight)
		return nil, ErrBusy
	}

	start := time.Now()

	// The worker owns the raster; on timeout it finishes and frees it alone.
	done := make(chan outcome, 1)
	go func() {
		defer s.slots.Release(1)
		markers, err := s.run(image)
		done <- outcome{markers: markers, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.Warn("detection timed out", "bytes", len(image), "timeout", s.config.DetectTimeout)
			return nil, ErrTimeout
		}
		return nil, ctx.Err()

	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		elapsed := time.Since(start)
		metrics.RecordDetection(s.Family(), len(o.markers), elapsed)
		s.logger.Debug("detection complete", "markers", len(o.markers), "duration", elapsed)
		return NewResponse(o.markers), nil
	}
}

// run decodes and detects. Backend panics become DetectionErrors.
func (s *Service) run(image []byte) (markers []detection.Marker, err error) {
	img, err := gocv.IMDecode(image, gocv.IMReadGrayScale)
	if err != nil {
		img.Close()
		return nil, &DecodeError{Size: len(image), Err: err}
	}
	defer img.Close()

	if img.Empty() {
		return nil, &DecodeError{Size: len(image), Err: errEmptyRaster}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("detector panic", "panic", r)
			markers = nil
			err = &DetectionError{Family: s.Family(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	markers, err = s.detector.Detect(img)
	if err != nil {
		return nil, &DetectionError{Family: s.Family(), Err: err}
	}
	return markers, nil
}
