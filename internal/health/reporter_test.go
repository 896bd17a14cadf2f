package health

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/af-corp/taskrouter/internal/catalog"
	"github.com/af-corp/taskrouter/internal/router"
	"github.com/af-corp/taskrouter/internal/telemetry"
	"github.com/af-corp/taskrouter/internal/types"
)

func newTestRouter(t *testing.T, ids ...string) *router.Router {
	t.Helper()
	var entries []types.ProviderConfig
	for i, id := range ids {
		entries = append(entries, types.ProviderConfig{
			ProviderID:      id,
			Category:        types.CategoryGeneral,
			ModelID:         id + "-model",
			CostPer1kTokens: float64(i+1) / 100,
		})
	}
	cat, err := catalog.New(entries)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	rt, err := router.New(router.Options{
		Catalog:  cat,
		Breakers: router.NewBreakerRegistry(1, time.Hour),
	})
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	return rt
}

func status(t *testing.T, srv *grpchealth.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.Status
}

func TestReporter_Sync(t *testing.T) {
	rt := newTestRouter(t, "qwen", "claude")
	srv := grpchealth.NewServer()
	m := telemetry.NewMetrics(prometheus.NewRegistry())
	r := NewReporter(srv, rt, m)

	rt.Breakers().Report("qwen", false)
	r.Sync()

	if got := status(t, srv, ProviderService("qwen")); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("expected qwen NOT_SERVING, got %s", got)
	}
	if got := status(t, srv, ProviderService("claude")); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected claude SERVING, got %s", got)
	}
	if got := status(t, srv, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected overall SERVING with one provider available, got %s", got)
	}

	var metric dto.Metric
	if err := m.BreakerState.WithLabelValues("qwen").Write(&metric); err != nil {
		t.Fatal(err)
	}
	if metric.Gauge.GetValue() != float64(router.StateOpen) {
		t.Errorf("expected breaker gauge %d, got %v", router.StateOpen, metric.Gauge.GetValue())
	}
}

func TestReporter_AllOpenNotServing(t *testing.T) {
	rt := newTestRouter(t, "qwen", "claude")
	srv := grpchealth.NewServer()
	r := NewReporter(srv, rt, nil)

	rt.Breakers().Report("qwen", false)
	rt.Breakers().Report("claude", false)
	r.Sync()

	if got := status(t, srv, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("expected overall NOT_SERVING, got %s", got)
	}
}

func TestReporter_CatalogReloadDropsProvider(t *testing.T) {
	rt := newTestRouter(t, "qwen", "claude")
	srv := grpchealth.NewServer()
	r := NewReporter(srv, rt, nil)
	r.Sync()

	cat, err := catalog.New([]types.ProviderConfig{{ProviderID: "claude", Category: types.CategoryGeneral}})
	if err != nil {
		t.Fatal(err)
	}
	rt.SetCatalog(cat)
	r.Sync()

	if got := status(t, srv, ProviderService("qwen")); got != healthpb.HealthCheckResponse_SERVICE_UNKNOWN {
		t.Errorf("expected dropped provider SERVICE_UNKNOWN, got %s", got)
	}
}

func TestReporter_StartRejectsBadSchedule(t *testing.T) {
	r := NewReporter(grpchealth.NewServer(), newTestRouter(t, "a"), nil)
	if err := r.Start(context.Background(), "not a schedule"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestReporter_StartStop(t *testing.T) {
	srv := grpchealth.NewServer()
	r := NewReporter(srv, newTestRouter(t, "a"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx, "@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := status(t, srv, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected initial sync to mark SERVING, got %s", got)
	}

	r.Stop()
	if got := status(t, srv, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("expected NOT_SERVING after stop, got %s", got)
	}
}
