// Package config provides configuration helpers for tagserver commands.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// Default server configuration. Matches the loopback address and port the
// desktop client expects.
const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = "5000"
	DefaultFamily        = "tag36h11"
	DefaultMaxImageBytes = 20 << 20
	DefaultDetectTimeout = 10 * time.Second
	DefaultMaxInFlight   = 4
	DefaultLogLevel      = "info"
)

// Server holds runtime settings for the detection server.
type Server struct {
	Host          string
	Port          string
	Family        string
	MaxImageBytes int
	DetectTimeout time.Duration
	MaxInFlight   int     // Concurrent decode+detect workers
	RateLimit     float64 // Requests per second on /detect, 0 disables
	LogLevel      string
}

// Default returns the built-in configuration.
func Default() Server {
	return Server{
		Host:          DefaultHost,
		Port:          DefaultPort,
		Family:        DefaultFamily,
		MaxImageBytes: DefaultMaxImageBytes,
		DetectTimeout: DefaultDetectTimeout,
		MaxInFlight:   DefaultMaxInFlight,
		LogLevel:      DefaultLogLevel,
	}
}

// Load reads TAGSERVER_* and LOG_LEVEL env vars on top of Default.
func Load() (Server, error) {
	cfg := Default()
	var errs []error

	cfg.Host = envString("TAGSERVER_HOST", cfg.Host)
	cfg.Port = envString("TAGSERVER_PORT", cfg.Port)
	cfg.Family = envString("TAGSERVER_FAMILY", cfg.Family)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)

	if v, err := envInt("TAGSERVER_MAX_IMAGE_BYTES", cfg.MaxImageBytes); err != nil {
		errs = append(errs, err)
	} else {
		cfg.MaxImageBytes = v
	}

	if v, err := envDuration("TAGSERVER_DETECT_TIMEOUT", cfg.DetectTimeout); err != nil {
		errs = append(errs, err)
	} else {
		cfg.DetectTimeout = v
	}

	if v, err := envInt("TAGSERVER_MAX_INFLIGHT", cfg.MaxInFlight); err != nil {
		errs = append(errs, err)
	} else {
		cfg.MaxInFlight = v
	}

	if v, err := envFloat("TAGSERVER_RATE_LIMIT", cfg.RateLimit); err != nil {
		errs = append(errs, err)
	} else {
		cfg.RateLimit = v
	}

	return cfg, errors.Join(errs...)
}

// Validate checks value ranges. Family names are checked by the detector.
func (s Server) Validate() error {
	port, err := strconv.Atoi(s.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("config: invalid port %q", s.Port)
	}
	if s.Family == "" {
		return errors.New("config: marker family required")
	}
	if s.MaxImageBytes <= 0 {
		return fmt.Errorf("config: max image bytes must be positive, got %d", s.MaxImageBytes)
	}
	if s.DetectTimeout <= 0 {
		return fmt.Errorf("config: detect timeout must be positive, got %s", s.DetectTimeout)
	}
	if s.MaxInFlight <= 0 {
		return fmt.Errorf("config: max in-flight detections must be positive, got %d", s.MaxInFlight)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("config: rate limit must not be negative, got %g", s.RateLimit)
	}
	return nil
}

// Addr returns host:port for listening.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// URL returns the base URL clients use to reach the server.
func (s Server) URL() string {
	return "http://" + s.Addr()
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

// ServerURL returns TAGSERVER_URL, or the URL derived from the
// TAGSERVER_HOST and TAGSERVER_PORT settings.
func ServerURL() string {
	if u := os.Getenv("TAGSERVER_URL"); u != "" {
		return u
	}
	cfg := Default()
	cfg.Host = envString("TAGSERVER_HOST", cfg.Host)
	cfg.Port = envString("TAGSERVER_PORT", cfg.Port)
	return cfg.URL()
}
