package types

import "time"

// Constraints are the per-task limits a candidate provider must satisfy.
type Constraints struct {
	MaxLatencyMs             int      `json:"max_latency_ms,omitempty"`
	MaxCostPer1kTokens       *float64 `json:"max_cost_per_1k_tokens,omitempty"`
	RequiresVision           bool     `json:"requires_vision,omitempty"`
	RequiresStructuredOutput bool     `json:"requires_structured_output,omitempty"`
}

// Task is a single routing request. It is created per call and never mutated.
type Task struct {
	Description      string       `json:"description"`
	ExplicitCategory TaskCategory `json:"category,omitempty"`
	Constraints      Constraints  `json:"constraints"`

	// FallbackOverride forces the provider chain instead of the catalog-derived one.
	FallbackOverride []string `json:"fallback_override,omitempty"`

	RequestID string `json:"-"`
	Tenant    string `json:"-"`
}

// MaxAttemptTimeout caps the per-attempt timeout a task may ask for.
const MaxAttemptTimeout = 24 * time.Hour

// Timeout returns the per-attempt timeout for this task, or def when unset.
// Budgets above MaxAttemptTimeout are capped.
func (t Task) Timeout(def time.Duration) time.Duration {
	ms := t.Constraints.MaxLatencyMs
	if ms <= 0 {
		return def
	}
	if int64(ms) > MaxAttemptTimeout.Milliseconds() {
		return MaxAttemptTimeout
	}
	return time.Duration(ms) * time.Millisecond
}
