package router

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	StateClosed   CircuitState = iota // healthy, requests flow
	StateOpen                         // unhealthy, requests rejected
	StateHalfOpen                     // one trial request in flight
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerSnapshot is a point-in-time copy of a breaker's state.
type BreakerSnapshot struct {
	State               CircuitState  `json:"-"`
	StateName           string        `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastFailureAt       time.Time     `json:"last_failure_at,omitzero"`
	LastTransitionAt    time.Time     `json:"last_transition_at,omitzero"`
	FailureThreshold    int           `json:"failure_threshold"`
	OpenTimeout         time.Duration `json:"open_timeout"`
}

// transitionFunc observes state changes. It is called after the breaker's
// lock is released.
type transitionFunc func(from, to CircuitState)

// CircuitBreaker implements a per-provider circuit breaker with single-trial
// half-open semantics: once the open timeout elapses, exactly one caller is
// admitted and the move to HALF_OPEN happens under the same lock as that
// admission.
type CircuitBreaker struct {
	mu sync.Mutex

	state               CircuitState
	consecutiveFailures int
	lastFailureAt       time.Time
	lastTransitionAt    time.Time

	failureThreshold int
	openTimeout      time.Duration
	now              func() time.Time
	onTransition     transitionFunc
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		now:              time.Now,
	}
}

// State returns the current state without side effects. An OPEN breaker
// whose timeout has elapsed still reports OPEN until a caller is admitted.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerSnapshot{
		State:               cb.state,
		StateName:           cb.state.String(),
		ConsecutiveFailures: cb.consecutiveFailures,
		LastFailureAt:       cb.lastFailureAt,
		LastTransitionAt:    cb.lastTransitionAt,
		FailureThreshold:    cb.failureThreshold,
		OpenTimeout:         cb.openTimeout,
	}
}

// Allow reports whether a request may proceed. In OPEN it admits exactly one
// caller once the open timeout has elapsed and moves to HALF_OPEN; every
// other caller is rejected until that trial is reported.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	from, allowed, moved := cb.state, false, false

	switch cb.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		now := cb.now()
		if now.Sub(cb.lastTransitionAt) >= cb.openTimeout {
			cb.setStateLocked(StateHalfOpen, now)
			allowed, moved = true, true
		}
	case StateHalfOpen:
		// trial already outstanding
	}
	cb.mu.Unlock()

	if moved {
		cb.notify(from, StateHalfOpen)
	}
	return allowed
}

// RecordSuccess resets the failure count and closes a half-open breaker.
// A late success while OPEN does not shorten the open period.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	from := cb.state
	switch cb.state {
	case StateClosed:
		cb.consecutiveFailures = 0
	case StateHalfOpen:
		cb.consecutiveFailures = 0
		cb.setStateLocked(StateClosed, cb.now())
	}
	to := cb.state
	cb.mu.Unlock()

	if from != to {
		cb.notify(from, to)
	}
}

// RecordFailure counts a failure. CLOSED trips to OPEN at the threshold and
// a failed half-open trial reopens the breaker with a fresh timeout.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	now := cb.now()
	from := cb.state
	cb.consecutiveFailures++
	cb.lastFailureAt = now

	switch cb.state {
	case StateClosed:
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.setStateLocked(StateOpen, now)
		}
	case StateHalfOpen:
		cb.setStateLocked(StateOpen, now)
	}
	to := cb.state
	cb.mu.Unlock()

	if from != to {
		cb.notify(from, to)
	}
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.consecutiveFailures = 0
	cb.setStateLocked(StateClosed, cb.now())
	cb.mu.Unlock()

	if from != StateClosed {
		cb.notify(from, StateClosed)
	}
}

// setStateLocked must be called with mu held.
func (cb *CircuitBreaker) setStateLocked(s CircuitState, now time.Time) {
	if cb.state != s {
		cb.lastTransitionAt = now
	}
	cb.state = s
}

func (cb *CircuitBreaker) notify(from, to CircuitState) {
	if cb.onTransition != nil {
		cb.onTransition(from, to)
	}
}
