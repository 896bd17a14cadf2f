package router

import (
	"sort"
	"sync"
	"time"
)

// TransitionHook observes breaker state changes for any provider.
type TransitionHook func(providerID string, from, to CircuitState)

// BreakerRegistry owns one circuit breaker per provider id. The map lock only
// guards get-or-create; state transitions lock the individual breaker, so
// providers never block each other.
type BreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker

	failureThreshold int
	openTimeout      time.Duration
	now              func() time.Time
	hook             TransitionHook
}

type RegistryOption func(*BreakerRegistry)

// WithClock sets the time source for every breaker the registry creates.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *BreakerRegistry) { r.now = now }
}

// WithTransitionHook registers a callback for breaker state changes.
func WithTransitionHook(h TransitionHook) RegistryOption {
	return func(r *BreakerRegistry) { r.hook = h }
}

// NewBreakerRegistry creates a registry whose breakers trip after
// failureThreshold consecutive failures and stay open for openTimeout.
func NewBreakerRegistry(failureThreshold int, openTimeout time.Duration, opts ...RegistryOption) *BreakerRegistry {
	r := &BreakerRegistry{
		breakers:         make(map[string]*CircuitBreaker),
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns (or lazily creates) the circuit breaker for a provider.
func (r *BreakerRegistry) Get(providerID string) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[providerID]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Double-check after acquiring write lock
	if cb, ok := r.breakers[providerID]; ok {
		return cb
	}
	cb = NewCircuitBreaker(r.failureThreshold, r.openTimeout)
	cb.now = r.now
	if r.hook != nil {
		hook := r.hook
		cb.onTransition = func(from, to CircuitState) { hook(providerID, from, to) }
	}
	r.breakers[providerID] = cb
	return cb
}

// Admit reports whether a call to providerID may proceed.
func (r *BreakerRegistry) Admit(providerID string) bool {
	return r.Get(providerID).Allow()
}

// Report records the outcome of an admitted call.
func (r *BreakerRegistry) Report(providerID string, success bool) {
	cb := r.Get(providerID)
	if success {
		cb.RecordSuccess()
		return
	}
	cb.RecordFailure()
}

// State returns the provider's breaker state; unknown providers are CLOSED.
func (r *BreakerRegistry) State(providerID string) CircuitState {
	r.mu.RLock()
	cb, ok := r.breakers[providerID]
	r.mu.RUnlock()
	if !ok {
		return StateClosed
	}
	return cb.State()
}

// Snapshots copies the state of every known breaker.
func (r *BreakerRegistry) Snapshots() map[string]BreakerSnapshot {
	r.mu.RLock()
	breakers := make(map[string]*CircuitBreaker, len(r.breakers))
	for id, cb := range r.breakers {
		breakers[id] = cb
	}
	r.mu.RUnlock()

	out := make(map[string]BreakerSnapshot, len(breakers))
	for id, cb := range breakers {
		out[id] = cb.Snapshot()
	}
	return out
}

// Providers lists every provider with a breaker, sorted.
func (r *BreakerRegistry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.breakers))
	for id := range r.breakers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
