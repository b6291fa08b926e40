package config

import (
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:5000" {
		t.Errorf("Addr: got %q, want 127.0.0.1:5000", cfg.Addr())
	}
	if cfg.URL() != "http://127.0.0.1:5000" {
		t.Errorf("URL: got %q", cfg.URL())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TAGSERVER_HOST", "0.0.0.0")
	t.Setenv("TAGSERVER_PORT", "8080")
	t.Setenv("TAGSERVER_FAMILY", "tag25h9")
	t.Setenv("TAGSERVER_MAX_IMAGE_BYTES", "1024")
	t.Setenv("TAGSERVER_DETECT_TIMEOUT", "250ms")
	t.Setenv("TAGSERVER_MAX_INFLIGHT", "8")
	t.Setenv("TAGSERVER_RATE_LIMIT", "2.5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := Server{
		Host:          "0.0.0.0",
		Port:          "8080",
		Family:        "tag25h9",
		MaxImageBytes: 1024,
		DetectTimeout: 250 * time.Millisecond,
		MaxInFlight:   8,
		RateLimit:     2.5,
		LogLevel:      "debug",
	}
	if cfg != want {
		t.Errorf("Load: got %+v, want %+v", cfg, want)
	}
}

func TestLoadMalformedKeepsDefaults(t *testing.T) {
	t.Setenv("TAGSERVER_MAX_IMAGE_BYTES", "lots")
	t.Setenv("TAGSERVER_DETECT_TIMEOUT", "soon")

	cfg, err := Load()
	if err == nil {
		t.Fatal("expected error for malformed values")
	}
	if cfg.MaxImageBytes != DefaultMaxImageBytes {
		t.Errorf("MaxImageBytes: got %d, want default", cfg.MaxImageBytes)
	}
	if cfg.DetectTimeout != DefaultDetectTimeout {
		t.Errorf("DetectTimeout: got %s, want default", cfg.DetectTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Server)
	}{
		{"port not a number", func(s *Server) { s.Port = "http" }},
		{"port out of range", func(s *Server) { s.Port = "70000" }},
		{"empty family", func(s *Server) { s.Family = "" }},
		{"zero image cap", func(s *Server) { s.MaxImageBytes = 0 }},
		{"zero timeout", func(s *Server) { s.DetectTimeout = 0 }},
		{"zero in-flight", func(s *Server) { s.MaxInFlight = 0 }},
		{"negative rate", func(s *Server) { s.RateLimit = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestServerURL(t *testing.T) {
	t.Setenv("TAGSERVER_URL", "")
	t.Setenv("TAGSERVER_PORT", "6001")
	if got := ServerURL(); got != "http://127.0.0.1:6001" {
		t.Errorf("ServerURL: got %q", got)
	}

	t.Setenv("TAGSERVER_URL", "http://tags.local:9000")
	if got := ServerURL(); got != "http://tags.local:9000" {
		t.Errorf("ServerURL override: got %q", got)
	}
}
