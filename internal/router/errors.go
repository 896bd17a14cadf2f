package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/af-corp/taskrouter/internal/router/adapters"
	"github.com/af-corp/taskrouter/internal/types"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrNoCandidateProviders  = errors.New("no candidate providers")
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
)

// NoCandidateProvidersError is a configuration problem: nothing is registered
// for the category or every provider failed a hard constraint. It is never
// retried.
type NoCandidateProvidersError struct {
	Category types.TaskCategory
	Reason   string
}

func (e *NoCandidateProvidersError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("no candidate providers for %s", e.Category)
	}
	return fmt.Sprintf("no candidate providers for %s: %s", e.Category, e.Reason)
}

func (e *NoCandidateProvidersError) Is(target error) bool {
	return target == ErrNoCandidateProviders
}

// AttemptError is the failure of one admitted provider attempt.
type AttemptError struct {
	ProviderID string
	Kind       adapters.FailureKind
	Err        error
}

// Error does not repeat the provider and kind when Err already carries them.
func (e AttemptError) Error() string {
	if perr, ok := e.Err.(*adapters.Error); ok && perr != nil && perr.Provider == e.ProviderID {
		return perr.Error()
	}
	return fmt.Sprintf("%s: %s: %v", e.ProviderID, e.Kind, e.Err)
}

func (e AttemptError) Unwrap() error { return e.Err }

// AllProvidersExhaustedError is returned when no candidate succeeded. It covers
// three cases: every admitted candidate failed, every candidate was
// breaker-rejected (zero attempts), or the caller's context ended mid-chain.
type AllProvidersExhaustedError struct {
	Category types.TaskCategory
	Attempts []AttemptError
	Rejected []string
	// Cause is the caller's context error when the chain was abandoned.
	Cause error
}

func (e *AllProvidersExhaustedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "all providers exhausted for %s", e.Category)
	if e.Cause != nil {
		fmt.Fprintf(&sb, " (abandoned: %v)", e.Cause)
	}
	if len(e.Attempts) == 0 && len(e.Rejected) > 0 {
		fmt.Fprintf(&sb, ": all %d candidates rejected by open circuit breakers", len(e.Rejected))
		return sb.String()
	}
	for i, a := range e.Attempts {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(a.Error())
	}
	return sb.String()
}

func (e *AllProvidersExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}

// Unwrap exposes every attempt error and the cause to errors.Is and errors.As.
func (e *AllProvidersExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	for _, a := range e.Attempts {
		errs = append(errs, a)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// AttemptedProviders lists the attempted provider ids in order.
func (e *AllProvidersExhaustedError) AttemptedProviders() []string {
	out := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a.ProviderID
	}
	return out
}

// TimedOut reports whether the chain was abandoned because the caller's
// deadline passed.
func (e *AllProvidersExhaustedError) TimedOut() bool {
	return errors.Is(e.Cause, context.DeadlineExceeded)
}
