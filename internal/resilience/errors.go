package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// Class is how a failed provider call should be treated.
type Class int

const (
	// Permanent failures are returned as-is.
	Permanent Class = iota
	// Transient failures may succeed if repeated after a short backoff.
	Transient
	// Throttled failures were rejected by the provider's rate limiter and are
	// repeated after a longer backoff.
	Throttled
)

func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Throttled:
		return "throttled"
	default:
		return "permanent"
	}
}

// StatusCoder is implemented by provider API errors that carry the HTTP
// status of the failed response.
type StatusCoder interface {
	HTTPStatus() int
}

// ClassifyStatus maps a provider HTTP status to a Class.
func ClassifyStatus(code int) Class {
	switch code {
	case 429:
		return Throttled
	case 408, 500, 502, 503, 504:
		return Transient
	default:
		return Permanent
	}
}

var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
}

// Classify inspects err and everything it wraps. A status-carrying error is
// classified by its status alone; other errors by transport heuristics.
// Cancellation is always Permanent.
func Classify(err error) Class {
	if err == nil || errors.Is(err, context.Canceled) {
		return Permanent
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return ClassifyStatus(sc.HTTPStatus())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return Transient
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return Transient
		}
	}
	return Permanent
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return Classify(err) != Permanent
}

// ShouldTrip reports whether err counts toward opening a provider's circuit.
// Transient and throttled failures count, as do rejected credentials.
// Other permanent answers (404, 422) only mean the provider had nothing for
// that request.
func ShouldTrip(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		switch sc.HTTPStatus() {
		case 401, 403:
			return true
		}
	}
	return Classify(err) != Permanent
}
