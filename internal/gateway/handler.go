package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/af-corp/taskrouter/internal/httputil"
	"github.com/af-corp/taskrouter/internal/ratelimit"
	"github.com/af-corp/taskrouter/internal/router"
	"github.com/af-corp/taskrouter/internal/router/adapters"
	"github.com/af-corp/taskrouter/internal/stats"
	"github.com/af-corp/taskrouter/internal/tenant"
	"github.com/af-corp/taskrouter/internal/types"
)

const maxBodyBytes = 1 << 20

// Handler holds dependencies for the gateway HTTP handlers.
type Handler struct {
	router   *router.Router
	executor adapters.Executor
	budget   *ratelimit.BudgetTracker
	version  string
}

func NewHandler(rt *router.Router, executor adapters.Executor, budget *ratelimit.BudgetTracker, version string) *Handler {
	return &Handler{
		router:   rt,
		executor: executor,
		budget:   budget,
		version:  version,
	}
}

type constraintsRequest struct {
	MaxLatencyMs             int      `json:"max_latency_ms"`
	MaxCostPer1kTokens       *float64 `json:"max_cost_per_1k_tokens"`
	RequiresVision           bool     `json:"requires_vision"`
	RequiresStructuredOutput bool     `json:"requires_structured_output"`
}

type routeRequest struct {
	Description      string             `json:"description"`
	Category         string             `json:"category"`
	Constraints      constraintsRequest `json:"constraints"`
	FallbackOverride []string           `json:"fallback_override"`
}

type routeResponse struct {
	RouteID            string   `json:"route_id"`
	Category           string   `json:"category"`
	SelectedProvider   string   `json:"selected_provider"`
	Model              string   `json:"model"`
	AttemptedProviders []string `json:"attempted_providers"`
	SkippedProviders   []string `json:"skipped_providers"`
	Content            string   `json:"content"`
	TokensUsed         int      `json:"tokens_used"`
	LatencyMs          int64    `json:"latency_ms"`
	TotalLatencyMs     int64    `json:"total_latency_ms"`
	EstimatedCostUSD   float64  `json:"estimated_cost_usd"`
}

// toTask validates the request body and converts it into a routing task.
func (req routeRequest) toTask() (types.Task, error) {
	if strings.TrimSpace(req.Description) == "" {
		return types.Task{}, errors.New("description is required")
	}
	var category types.TaskCategory
	if req.Category != "" {
		c, ok := types.ParseCategory(req.Category)
		if !ok {
			return types.Task{}, fmt.Errorf("unknown category %q", req.Category)
		}
		category = c
	}
	if req.Constraints.MaxLatencyMs < 0 {
		return types.Task{}, errors.New("constraints.max_latency_ms must not be negative")
	}
	if int64(req.Constraints.MaxLatencyMs) > types.MaxAttemptTimeout.Milliseconds() {
		return types.Task{}, fmt.Errorf("constraints.max_latency_ms must not exceed %d", types.MaxAttemptTimeout.Milliseconds())
	}
	if c := req.Constraints.MaxCostPer1kTokens; c != nil && *c < 0 {
		return types.Task{}, errors.New("constraints.max_cost_per_1k_tokens must not be negative")
	}
	return types.Task{
		Description:      req.Description,
		ExplicitCategory: category,
		Constraints: types.Constraints{
			MaxLatencyMs:             req.Constraints.MaxLatencyMs,
			MaxCostPer1kTokens:       req.Constraints.MaxCostPer1kTokens,
			RequiresVision:           req.Constraints.RequiresVision,
			RequiresStructuredOutput: req.Constraints.RequiresStructuredOutput,
		},
		FallbackOverride: req.FallbackOverride,
	}, nil
}

func decodeRouteRequest(w http.ResponseWriter, r *http.Request, reqID string) (types.Task, bool) {
	var req routeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return types.Task{}, false
	}
	task, err := req.toTask()
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return types.Task{}, false
	}
	task.RequestID = reqID
	if info, ok := tenant.FromContext(r.Context()); ok {
		task.Tenant = info.ID
	}
	return task, true
}

// Route handles POST /v1/route
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	task, ok := decodeRouteRequest(w, r, reqID)
	if !ok {
		return
	}

	out, err := h.router.RouteTask(r.Context(), task, h.executor)
	if err != nil {
		writeRouteError(w, reqID, err)
		return
	}

	if h.budget != nil && task.Tenant != "" {
		if err := h.budget.RecordSpend(r.Context(), task.Tenant, ratelimit.MicroUSD(out.EstimatedCostUSD)); err != nil {
			slog.Warn("failed to record spend", "request_id", reqID, "tenant", task.Tenant, "error", err)
		}
	}

	httputil.WriteJSON(w, reqID, http.StatusOK, routeResponse{
		RouteID:            out.RouteID,
		Category:           string(out.Category),
		SelectedProvider:   out.SelectedProviderID,
		Model:              out.Completion.Model,
		AttemptedProviders: nonNil(out.AttemptedProviderIDs),
		SkippedProviders:   nonNil(out.SkippedProviderIDs),
		Content:            out.Completion.Content,
		TokensUsed:         out.Completion.TokensUsed,
		LatencyMs:          out.Completion.LatencyMs,
		TotalLatencyMs:     out.TotalLatency.Milliseconds(),
		EstimatedCostUSD:   out.EstimatedCostUSD,
	})
}

func writeRouteError(w http.ResponseWriter, reqID string, err error) {
	var exhausted *router.AllProvidersExhaustedError
	switch {
	case errors.Is(err, router.ErrNoCandidateProviders):
		httputil.WriteNoCandidatesError(w, reqID, err.Error())
	case errors.As(err, &exhausted) && exhausted.TimedOut():
		httputil.WriteRouteTimeoutError(w, reqID, err.Error())
	case errors.Is(err, context.Canceled):
		// Caller went away; nobody reads the body.
		slog.Info("route abandoned by caller", "request_id", reqID)
		httputil.WriteExhaustedError(w, reqID, err.Error())
	case errors.As(err, &exhausted):
		httputil.WriteExhaustedError(w, reqID, err.Error())
	default:
		slog.Error("unexpected routing error", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Internal routing error")
	}
}

type classifyResponse struct {
	Category string         `json:"category"`
	Explicit bool           `json:"explicit"`
	Matched  []string       `json:"matched_keywords"`
	Scores   map[string]int `json:"scores,omitempty"`
}

// Classify handles POST /v1/classify
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	task, ok := decodeRouteRequest(w, r, reqID)
	if !ok {
		return
	}

	d := h.router.Classifier().Explain(task)
	scores := make(map[string]int, len(d.Scores))
	for c, n := range d.Scores {
		scores[string(c)] = n
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, classifyResponse{
		Category: string(d.Category),
		Explicit: d.Explicit,
		Matched:  nonNil(d.Matched),
		Scores:   scores,
	})
}

type providerStatus struct {
	ProviderID   string                 `json:"provider_id"`
	Categories   []string               `json:"categories"`
	Breaker      router.BreakerSnapshot `json:"breaker"`
	Metrics      stats.Snapshot         `json:"metrics"`
	SuccessRate  float64                `json:"success_rate"`
	AvgLatencyMs float64                `json:"avg_latency_ms"`
}

// Providers handles GET /v1/providers
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	cat := h.router.Catalog()
	breakers := h.router.Breakers()
	st := h.router.Stats()

	categories := make(map[string][]string)
	for _, c := range cat.Categories() {
		for _, p := range cat.Entries(c) {
			categories[p.ProviderID] = append(categories[p.ProviderID], string(c))
		}
	}

	out := make([]providerStatus, 0, len(cat.Providers()))
	for _, id := range cat.Providers() {
		snap := st.Snapshot(id)
		out = append(out, providerStatus{
			ProviderID:   id,
			Categories:   categories[id],
			Breaker:      breakers.Get(id).Snapshot(),
			Metrics:      snap,
			SuccessRate:  snap.SuccessRate(),
			AvgLatencyMs: snap.AvgLatencyMs(),
		})
	}

	httputil.WriteJSON(w, reqID, http.StatusOK, map[string]any{
		"object": "list",
		"data":   out,
	})
}

type categoryListing struct {
	Category  string                 `json:"category"`
	Providers []types.ProviderConfig `json:"providers"`
}

// Categories handles GET /v1/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	cat := h.router.Catalog()
	out := make([]categoryListing, 0)
	for _, c := range cat.Categories() {
		out = append(out, categoryListing{Category: string(c), Providers: cat.Entries(c)})
	}

	httputil.WriteJSON(w, reqID, http.StatusOK, map[string]any{
		"object": "list",
		"data":   out,
	})
}

// Healthz handles GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, "", http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": h.version,
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
