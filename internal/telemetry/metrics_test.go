package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)
	var metric dto.Metric
	m := <-ch
	if m == nil {
		t.Fatal("no metric collected")
	}
	if err := m.Write(&metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	switch {
	case metric.Counter != nil:
		return metric.Counter.GetValue()
	case metric.Gauge != nil:
		return metric.Gauge.GetValue()
	}
	t.Fatal("metric is neither counter nor gauge")
	return 0
}

func TestNewMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if m.RouteTotal == nil {
		t.Error("RouteTotal should not be nil")
	}
	if m.AttemptTotal == nil {
		t.Error("AttemptTotal should not be nil")
	}
	if m.BreakerState == nil {
		t.Error("BreakerState should not be nil")
	}
	if m.RateLimitHitsTotal == nil {
		t.Error("RateLimitHitsTotal should not be nil")
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Registering twice on the same registry would panic.
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}

func TestRecordRouteAndAttempt(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRoute("CODEGEN", "success", 120*time.Millisecond)
	m.RecordAttempt("qwen", "CODEGEN", "timeout", 30*time.Millisecond)
	m.RecordAttempt("claude", "CODEGEN", "success", 90*time.Millisecond)

	if v := counterValue(t, m.RouteTotal.WithLabelValues("CODEGEN", "success")); v != 1 {
		t.Errorf("expected route count 1, got %v", v)
	}
	if v := counterValue(t, m.AttemptTotal.WithLabelValues("qwen", "CODEGEN", "timeout")); v != 1 {
		t.Errorf("expected qwen timeout count 1, got %v", v)
	}
	if v := counterValue(t, m.AttemptTotal.WithLabelValues("claude", "CODEGEN", "success")); v != 1 {
		t.Errorf("expected claude success count 1, got %v", v)
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordBreakerTransition("qwen", "closed", "open", 1)
	m.RecordBreakerRejection("qwen")
	m.RecordBreakerRejection("qwen")

	if v := counterValue(t, m.BreakerTransitionsTotal.WithLabelValues("qwen", "closed", "open")); v != 1 {
		t.Errorf("expected 1 transition, got %v", v)
	}
	if v := counterValue(t, m.BreakerState.WithLabelValues("qwen")); v != 1 {
		t.Errorf("expected state gauge 1, got %v", v)
	}
	if v := counterValue(t, m.BreakerRejectionsTotal.WithLabelValues("qwen")); v != 2 {
		t.Errorf("expected 2 rejections, got %v", v)
	}
}

func TestRecordUsage(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordUsage("claude", 1500, 0.0225)
	m.RecordUsage("claude", 0, 0)

	if v := counterValue(t, m.TokensTotal.WithLabelValues("claude")); v != 1500 {
		t.Errorf("expected 1500 tokens, got %v", v)
	}
	if v := counterValue(t, m.CostUSDTotal.WithLabelValues("claude")); v != 0.0225 {
		t.Errorf("expected cost 0.0225, got %v", v)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordRoute("GENERAL", "success", time.Second)
	m.RecordAttempt("a", "GENERAL", "success", time.Second)
	m.RecordBreakerRejection("a")
	m.RecordBreakerTransition("a", "closed", "open", 1)
	m.SetSuccessRate("a", 0.5)
	m.RecordUsage("a", 10, 0.1)
	m.RecordRateLimitHit("rpm")
}
