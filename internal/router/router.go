// Package router selects a provider for a task, walks the fallback chain on
// failure and keeps per-provider circuit breakers and outcome metrics current.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/af-corp/taskrouter/internal/catalog"
	"github.com/af-corp/taskrouter/internal/classifier"
	"github.com/af-corp/taskrouter/internal/router/adapters"
	"github.com/af-corp/taskrouter/internal/stats"
	"github.com/af-corp/taskrouter/internal/telemetry"
	"github.com/af-corp/taskrouter/internal/types"
)

const defaultAttemptTimeout = 30 * time.Second

// CandidateFilter can veto a candidate that passed the hard constraints.
// A vetoed provider is excluded, exactly like a failed hard constraint.
type CandidateFilter interface {
	Allow(ctx context.Context, task types.Task, category types.TaskCategory, p types.ProviderConfig) (bool, string, error)
}

// Outcome is the result of one RouteTask call.
type Outcome struct {
	RouteID              string
	Category             types.TaskCategory
	SelectedProviderID   string
	SelectedModel        string
	AttemptedProviderIDs []string
	SkippedProviderIDs   []string
	Success              bool
	Completion           *types.Completion
	EstimatedCostUSD     float64
	Err                  error
	TotalLatency         time.Duration
}

type Options struct {
	Catalog    *catalog.Catalog
	Classifier *classifier.Classifier
	Breakers   *BreakerRegistry
	Stats      *stats.Collector
	Filter     CandidateFilter
	Metrics    *telemetry.Metrics
	// DefaultTimeout bounds an attempt when the task sets no max latency.
	DefaultTimeout time.Duration
	Logger         *slog.Logger
}

// Router is safe for concurrent use. The only shared mutable state is the
// breaker registry and the stats collector, both locked per provider.
type Router struct {
	catalog    atomic.Pointer[catalog.Catalog]
	classifier atomic.Pointer[classifier.Classifier]

	breakers       *BreakerRegistry
	stats          *stats.Collector
	filter         CandidateFilter
	metrics        *telemetry.Metrics
	defaultTimeout time.Duration
	logger         *slog.Logger
}

func New(opts Options) (*Router, error) {
	if opts.Catalog == nil {
		return nil, errors.New("router: catalog is required")
	}
	r := &Router{
		breakers:       opts.Breakers,
		stats:          opts.Stats,
		filter:         opts.Filter,
		metrics:        opts.Metrics,
		defaultTimeout: opts.DefaultTimeout,
		logger:         opts.Logger,
	}
	if r.breakers == nil {
		r.breakers = NewBreakerRegistry(5, 30*time.Second)
	}
	if r.stats == nil {
		r.stats = stats.NewCollector(5*time.Minute, 10*time.Second)
	}
	if r.defaultTimeout <= 0 {
		r.defaultTimeout = defaultAttemptTimeout
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	cls := opts.Classifier
	if cls == nil {
		cls = classifier.New(nil, types.CategoryGeneral)
	}
	r.catalog.Store(opts.Catalog)
	r.classifier.Store(cls)
	return r, nil
}

// SetCatalog swaps in a new immutable catalog. In-flight routes keep the
// catalog they started with.
func (r *Router) SetCatalog(c *catalog.Catalog) {
	if c != nil {
		r.catalog.Store(c)
	}
}

func (r *Router) SetClassifier(c *classifier.Classifier) {
	if c != nil {
		r.classifier.Store(c)
	}
}

func (r *Router) Catalog() *catalog.Catalog          { return r.catalog.Load() }
func (r *Router) Classifier() *classifier.Classifier { return r.classifier.Load() }
func (r *Router) Breakers() *BreakerRegistry         { return r.breakers }
func (r *Router) Stats() *stats.Collector            { return r.stats }

// RouteTask classifies the task, ranks its candidates and tries them one at a
// time until one succeeds. The returned Outcome is never nil. The error is
// either *NoCandidateProvidersError or *AllProvidersExhaustedError.
func (r *Router) RouteTask(ctx context.Context, task types.Task, exec adapters.Executor) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{
		RouteID:  uuid.NewString(),
		Category: r.classifier.Load().Classify(task),
	}
	log := r.logger.With("route_id", out.RouteID, "request_id", task.RequestID, "category", out.Category)

	candidates, err := r.candidates(ctx, task, out.Category)
	if err != nil {
		return r.finish(log, out, start, err)
	}

	exhausted := &AllProvidersExhaustedError{Category: out.Category}
	for _, p := range candidates {
		if ctxErr := ctx.Err(); ctxErr != nil {
			exhausted.Cause = ctxErr
			break
		}

		if !r.breakers.Admit(p.ProviderID) {
			out.SkippedProviderIDs = append(out.SkippedProviderIDs, p.ProviderID)
			exhausted.Rejected = append(exhausted.Rejected, p.ProviderID)
			r.metrics.RecordBreakerRejection(p.ProviderID)
			log.Debug("provider skipped, circuit open", "provider", p.ProviderID)
			continue
		}

		out.AttemptedProviderIDs = append(out.AttemptedProviderIDs, p.ProviderID)
		log.Debug("attempting provider", "provider", p.ProviderID, "model", p.ModelID, "attempt", len(out.AttemptedProviderIDs))

		completion, err := r.attempt(ctx, exec, p, task, out.Category)
		if err == nil {
			out.Success = true
			out.SelectedProviderID = p.ProviderID
			out.SelectedModel = p.ModelID
			out.Completion = completion
			out.EstimatedCostUSD = p.EstimateCostUSD(completion.TokensUsed)
			r.metrics.RecordUsage(p.ProviderID, completion.TokensUsed, out.EstimatedCostUSD)
			return r.finish(log, out, start, nil)
		}

		kind := adapters.KindOf(err)
		exhausted.Attempts = append(exhausted.Attempts, AttemptError{ProviderID: p.ProviderID, Kind: kind, Err: err})
		log.Warn("provider attempt failed", "provider", p.ProviderID, "kind", kind, "error", err)

		if ctxErr := ctx.Err(); ctxErr != nil {
			exhausted.Cause = ctxErr
			break
		}
	}

	return r.finish(log, out, start, exhausted)
}

// candidates resolves the ordered chain for a task. Only reads happen here.
func (r *Router) candidates(ctx context.Context, task types.Task, category types.TaskCategory) ([]types.ProviderConfig, error) {
	cat := r.catalog.Load()

	var list []types.ProviderConfig
	if len(task.FallbackOverride) > 0 {
		seen := make(map[string]bool, len(task.FallbackOverride))
		for _, id := range task.FallbackOverride {
			if seen[id] {
				continue
			}
			seen[id] = true
			p, ok := cat.Lookup(id, category)
			if !ok {
				r.logger.Warn("fallback override names unknown provider", "provider", id)
				continue
			}
			if p.Satisfies(task.Constraints) {
				list = append(list, p)
			}
		}
		if len(list) == 0 {
			return nil, &NoCandidateProvidersError{Category: category, Reason: "fallback override matched no eligible provider"}
		}
	} else {
		if len(cat.Entries(category)) == 0 {
			return nil, &NoCandidateProvidersError{Category: category, Reason: "no providers registered"}
		}
		list = cat.CandidatesFor(category, task.Constraints)
		if len(list) == 0 {
			return nil, &NoCandidateProvidersError{Category: category, Reason: "all providers excluded by task constraints"}
		}
		list = rankCandidates(list, r.stats.Snapshot)
	}

	if r.filter == nil {
		return list, nil
	}
	allowed := list[:0:0]
	for _, p := range list {
		ok, reason, err := r.filter.Allow(ctx, task, category, p)
		if err != nil {
			r.logger.Error("candidate policy evaluation failed", "provider", p.ProviderID, "error", err)
			continue
		}
		if !ok {
			r.logger.Debug("candidate vetoed by policy", "provider", p.ProviderID, "reason", reason)
			continue
		}
		allowed = append(allowed, p)
	}
	if len(allowed) == 0 {
		return nil, &NoCandidateProvidersError{Category: category, Reason: "all providers excluded by routing policy"}
	}
	return allowed, nil
}

type attemptResult struct {
	completion *types.Completion
	err        error
}

// attempt runs one admitted call under its own timeout and reports the
// outcome to the stats collector and the breaker exactly once. The executor
// runs in its own goroutine so a call that ignores ctx still cannot hold the
// route past its deadline; a cancelled half-open trial is reported as a
// failure so the breaker never waits on a report that will not come.
func (r *Router) attempt(ctx context.Context, exec adapters.Executor, p types.ProviderConfig, task types.Task, category types.TaskCategory) (*types.Completion, error) {
	timeout := task.Timeout(r.defaultTimeout)
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("executor panicked", "provider", p.ProviderID, "panic", rec, "stack", string(debug.Stack()))
				done <- attemptResult{err: &adapters.Error{
					Kind:     adapters.KindProviderUnavailable,
					Provider: p.ProviderID,
					Err:      fmt.Errorf("executor panic: %v", rec),
				}}
			}
		}()
		c, err := exec.Execute(attemptCtx, p, task)
		done <- attemptResult{completion: c, err: err}
	}()

	var res attemptResult
	select {
	case res = <-done:
	case <-attemptCtx.Done():
		res = attemptResult{err: attemptCtx.Err()}
	}
	latency := time.Since(start)

	if res.err == nil && res.completion == nil {
		res.err = errors.New("executor returned no completion")
	}
	if res.err != nil {
		res.err = attemptError(p.ProviderID, timeout, attemptCtx, res.err)
	}

	success := res.err == nil
	r.stats.Record(p.ProviderID, success, latency)
	r.breakers.Report(p.ProviderID, success)

	outcome := "success"
	if !success {
		outcome = string(adapters.KindOf(res.err))
	}
	r.metrics.RecordAttempt(p.ProviderID, string(category), outcome, latency)

	if !success {
		return nil, res.err
	}
	if res.completion.LatencyMs == 0 {
		res.completion.LatencyMs = latency.Milliseconds()
	}
	if res.completion.Model == "" {
		res.completion.Model = p.ModelID
	}
	return res.completion, nil
}

// attemptError normalises an executor failure into *adapters.Error. An
// expired attempt deadline is always a timeout, whatever the executor said.
func attemptError(providerID string, timeout time.Duration, attemptCtx context.Context, err error) error {
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		var perr *adapters.Error
		if errors.As(err, &perr) && perr.Kind == adapters.KindTimeout {
			return err
		}
		return &adapters.Error{
			Kind:     adapters.KindTimeout,
			Provider: providerID,
			Err:      fmt.Errorf("no response within %s: %w", timeout, err),
		}
	}
	var perr *adapters.Error
	if errors.As(err, &perr) {
		return err
	}
	return &adapters.Error{Kind: adapters.KindOf(err), Provider: providerID, Err: err}
}

func (r *Router) finish(log *slog.Logger, out *Outcome, start time.Time, err error) (*Outcome, error) {
	out.TotalLatency = time.Since(start)
	out.Err = err

	status := "success"
	var exhausted *AllProvidersExhaustedError
	switch {
	case err == nil:
		log.Info("task routed",
			"provider", out.SelectedProviderID,
			"model", out.SelectedModel,
			"attempted", out.AttemptedProviderIDs,
			"skipped", out.SkippedProviderIDs,
			"tokens", out.Completion.TokensUsed,
			"duration_ms", out.TotalLatency.Milliseconds(),
		)
	case errors.As(err, &exhausted):
		status = "exhausted"
		if exhausted.Cause != nil {
			status = "abandoned"
		}
		log.Warn("all providers exhausted",
			"attempted", out.AttemptedProviderIDs,
			"skipped", out.SkippedProviderIDs,
			"duration_ms", out.TotalLatency.Milliseconds(),
			"error", err,
		)
	default:
		status = "no_candidates"
		log.Warn("no candidate providers", "error", err)
	}
	r.metrics.RecordRoute(string(out.Category), status, out.TotalLatency)
	return out, err
}
