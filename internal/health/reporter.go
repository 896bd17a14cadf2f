// Package health mirrors circuit breaker state into the gRPC health service
// and the Prometheus gauges on a cron schedule.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/af-corp/taskrouter/internal/router"
	"github.com/af-corp/taskrouter/internal/telemetry"
)

// ProviderService is the health service name for one provider.
func ProviderService(providerID string) string {
	return "provider/" + providerID
}

// Reporter syncs breaker state into a gRPC health server.
type Reporter struct {
	server  *grpchealth.Server
	router  *router.Router
	metrics *telemetry.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	known   map[string]bool
}

func NewReporter(server *grpchealth.Server, rt *router.Router, metrics *telemetry.Metrics) *Reporter {
	return &Reporter{
		server:  server,
		router:  rt,
		metrics: metrics,
		logger:  slog.Default().With("component", "health.reporter"),
		cron:    cron.New(),
		known:   make(map[string]bool),
	}
}

// Sync publishes the current breaker state of every catalog provider. The
// overall service is SERVING while at least one provider is not OPEN.
func (r *Reporter) Sync() {
	breakers := r.router.Breakers()
	st := r.router.Stats()
	providers := r.router.Catalog().Providers()

	r.mu.Lock()
	defer r.mu.Unlock()

	current := make(map[string]bool, len(providers))
	available := 0
	for _, id := range providers {
		current[id] = true
		state := breakers.State(id)
		status := healthpb.HealthCheckResponse_SERVING
		if state == router.StateOpen {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		} else {
			available++
		}
		r.server.SetServingStatus(ProviderService(id), status)
		r.metrics.SetBreakerState(id, int(state))
		if snap := st.Snapshot(id); snap.SuccessCount+snap.FailureCount > 0 {
			r.metrics.SetSuccessRate(id, snap.SuccessRate())
		}
	}

	// Providers dropped by a catalog reload stop being served.
	for id := range r.known {
		if !current[id] {
			r.server.SetServingStatus(ProviderService(id), healthpb.HealthCheckResponse_SERVICE_UNKNOWN)
		}
	}
	r.known = current

	overall := healthpb.HealthCheckResponse_SERVING
	if available == 0 {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	r.server.SetServingStatus("", overall)
}

// Start runs Sync once and then on schedule until ctx is done.
func (r *Reporter) Start(ctx context.Context, schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid health sync schedule %q: %w", schedule, err)
	}

	r.Sync()

	r.mu.Lock()
	if _, err := r.cron.AddFunc(schedule, r.Sync); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("schedule health sync: %w", err)
	}
	r.cron.Start()
	r.running = true
	r.mu.Unlock()

	r.logger.Info("health reporter started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts the schedule, waits for a running sync and marks every
// service NOT_SERVING.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	<-r.cron.Stop().Done()
	r.server.Shutdown()
	r.logger.Info("health reporter stopped")
}
