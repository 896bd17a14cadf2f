package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the task router. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	RouteTotal              *prometheus.CounterVec
	RouteDurationMs         *prometheus.HistogramVec
	AttemptTotal            *prometheus.CounterVec
	AttemptDurationMs       *prometheus.HistogramVec
	BreakerRejectionsTotal  *prometheus.CounterVec
	BreakerTransitionsTotal *prometheus.CounterVec
	BreakerState            *prometheus.GaugeVec
	ProviderSuccessRate     *prometheus.GaugeVec
	TokensTotal             *prometheus.CounterVec
	CostUSDTotal            *prometheus.CounterVec
	RateLimitHitsTotal      *prometheus.CounterVec
}

// NewMetrics creates the router metrics and registers them with reg. A nil
// reg registers with the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RouteTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskrouter_route_total",
			Help: "Total number of routed tasks by category and final status.",
		}, []string{"category", "status"}),

		RouteDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskrouter_route_duration_ms",
			Help:    "End-to-end route duration in milliseconds, across all attempts.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"category"}),

		AttemptTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskrouter_attempt_total",
			Help: "Total provider attempts by outcome.",
		}, []string{"provider", "category", "outcome"}),

		AttemptDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskrouter_attempt_duration_ms",
			Help:    "Provider attempt latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"provider"}),

		BreakerRejectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskrouter_breaker_rejections_total",
			Help: "Candidates skipped because their circuit breaker refused admission.",
		}, []string{"provider"}),

		BreakerTransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskrouter_breaker_transitions_total",
			Help: "Circuit breaker state transitions.",
		}, []string{"provider", "from", "to"}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taskrouter_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 2=half_open).",
		}, []string{"provider"}),

		ProviderSuccessRate: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taskrouter_provider_success_rate",
			Help: "Success rate over the rolling metrics window.",
		}, []string{"provider"}),

		TokensTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskrouter_tokens_total",
			Help: "Total tokens consumed by successful completions.",
		}, []string{"provider"}),

		CostUSDTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskrouter_cost_usd_total",
			Help: "Estimated total cost in USD.",
		}, []string{"provider"}),

		RateLimitHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskrouter_rate_limit_hits_total",
			Help: "Requests rejected by tenant limits.",
		}, []string{"dimension"}),
	}
}

// RecordRoute records the final status of one RouteTask call.
func (m *Metrics) RecordRoute(category, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RouteTotal.WithLabelValues(category, status).Inc()
	m.RouteDurationMs.WithLabelValues(category).Observe(float64(d.Milliseconds()))
}

// RecordAttempt records one admitted provider call. outcome is "success" or
// a failure kind.
func (m *Metrics) RecordAttempt(provider, category, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.AttemptTotal.WithLabelValues(provider, category, outcome).Inc()
	m.AttemptDurationMs.WithLabelValues(provider).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) RecordBreakerRejection(provider string) {
	if m == nil {
		return
	}
	m.BreakerRejectionsTotal.WithLabelValues(provider).Inc()
}

// RecordBreakerTransition counts a transition and moves the state gauge.
// state is the numeric value of the new state.
func (m *Metrics) RecordBreakerTransition(provider, from, to string, state int) {
	if m == nil {
		return
	}
	m.BreakerTransitionsTotal.WithLabelValues(provider, from, to).Inc()
	m.BreakerState.WithLabelValues(provider).Set(float64(state))
}

func (m *Metrics) SetBreakerState(provider string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(provider).Set(float64(state))
}

func (m *Metrics) SetSuccessRate(provider string, rate float64) {
	if m == nil {
		return
	}
	m.ProviderSuccessRate.WithLabelValues(provider).Set(rate)
}

// RecordUsage records tokens and estimated spend for a successful completion.
func (m *Metrics) RecordUsage(provider string, tokens int, costUSD float64) {
	if m == nil {
		return
	}
	if tokens > 0 {
		m.TokensTotal.WithLabelValues(provider).Add(float64(tokens))
	}
	if costUSD > 0 {
		m.CostUSDTotal.WithLabelValues(provider).Add(costUSD)
	}
}

// RecordRateLimitHit records a request rejected on the given dimension
// ("rpm" or "budget").
func (m *Metrics) RecordRateLimitHit(dimension string) {
	if m == nil {
		return
	}
	m.RateLimitHitsTotal.WithLabelValues(dimension).Inc()
}
