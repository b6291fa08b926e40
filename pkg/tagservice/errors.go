package tagservice

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for request-level conditions.
var (
	// ErrMissingImage is returned when the request carries no image bytes.
	ErrMissingImage = errors.New("tagservice: no image uploaded")

	// ErrImageTooLarge is returned when the payload exceeds the configured cap.
	ErrImageTooLarge = errors.New("tagservice: image too large")

	// ErrTimeout is returned when detection does not finish in time.
	ErrTimeout = errors.New("tagservice: detection timed out")

	// ErrBusy is returned when every detection worker slot is taken.
	ErrBusy = errors.New("tagservice: all detection workers busy")
)

// DecodeError reports image bytes that could not be decoded into a raster.
type DecodeError struct {
	Size int
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("tagservice: decode %d bytes: %v", e.Size, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DetectionError reports a failure inside the detector backend.
type DetectionError struct {
	Family string
	Err    error
}

// Error implements the error interface.
func (e *DetectionError) Error() string {
	return fmt.Sprintf("tagservice [%s]: detection failed: %v", e.Family, e.Err)
}

// Unwrap returns the underlying error.
func (e *DetectionError) Unwrap() error {
	return e.Err
}

// Client-facing messages. 5xx messages never carry internal detail.
const (
	MsgMissingImage  = "No image uploaded"
	MsgImageTooLarge = "Image too large"
	MsgDecode        = "Could not decode image"
	MsgTimeout       = "Detection timed out"
	MsgDetection     = "Detection failed"
	MsgBusy          = "Server busy"
)

// StatusCode maps a Detect error to an HTTP status.
func StatusCode(err error) int {
	var decodeErr *DecodeError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingImage):
		return http.StatusBadRequest
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing message for a Detect error.
func Message(err error) string {
	var decodeErr *DecodeError
	switch {
	case errors.Is(err, ErrMissingImage):
		return MsgMissingImage
	case errors.As(err, &decodeErr):
		return MsgDecode
	case errors.Is(err, ErrImageTooLarge):
		return MsgImageTooLarge
	case errors.Is(err, ErrTimeout):
		return MsgTimeout
	case errors.Is(err, ErrBusy):
		return MsgBusy
	default:
		return MsgDetection
	}
}

// Kind returns a short label for metrics and logs.
func Kind(err error) string {
	var decodeErr *DecodeError
	var detectErr *DetectionError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingImage):
		return "missing_image"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.Is(err, ErrImageTooLarge):
		return "too_large"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.As(err, &detectErr):
		return "detection"
	default:
		return "internal"
	}
}
