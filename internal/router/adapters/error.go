package adapters

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FailureKind classifies a failed provider attempt.
type FailureKind string

const (
	KindProviderUnavailable FailureKind = "provider_unavailable"
	KindRateLimited         FailureKind = "rate_limited"
	KindTimeout             FailureKind = "timeout"
	KindInvalidRequest      FailureKind = "invalid_request"
)

var ErrUnknownProvider = errors.New("no executor registered for provider")

// Error is a failed provider attempt.
type Error struct {
	Kind     FailureKind
	Provider string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return "provider error"
	}
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindForStatus maps an HTTP status from a provider API to a failure kind.
func KindForStatus(status int) FailureKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusBadRequest,
		status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusNotFound,
		status == http.StatusRequestEntityTooLarge,
		status == http.StatusUnprocessableEntity:
		return KindInvalidRequest
	default:
		return KindProviderUnavailable
	}
}

// KindOf returns the failure kind of any error. Errors that are not *Error
// are classified by context and network timeouts, defaulting to
// KindProviderUnavailable.
func KindOf(err error) FailureKind {
	var perr *Error
	if errors.As(err, &perr) && perr.Kind != "" {
		return perr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindProviderUnavailable
}

// wrap builds an *Error for provider. A non-zero status decides the kind;
// otherwise the error itself is inspected.
func wrap(provider string, status int, err error) *Error {
	kind := KindOf(err)
	if status != 0 {
		kind = KindForStatus(status)
	}
	return &Error{Kind: kind, Provider: provider, Status: status, Err: err}
}
