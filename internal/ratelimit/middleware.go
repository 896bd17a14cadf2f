package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/af-corp/taskrouter/internal/config"
	"github.com/af-corp/taskrouter/internal/httputil"
	"github.com/af-corp/taskrouter/internal/telemetry"
	"github.com/af-corp/taskrouter/internal/tenant"
)

const (
	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerRetryAfter                 = "Retry-After"
)

// Middleware returns chi middleware that enforces per-tenant request rate and
// daily spend limits. Limits are read per request so config reloads apply.
func Middleware(limiter *Limiter, budget *BudgetTracker, limits func() config.LimitsConfig, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			info, ok := tenant.FromContext(r.Context())
			if !ok {
				// No tenant resolved, let the request pass
				next.ServeHTTP(w, r)
				return
			}
			cfg := limits()

			if cfg.RequestsPerMinute > 0 {
				rpm := cfg.RequestsPerMinute
				result, _ := limiter.Check(r.Context(), info.ID, int64(rpm), time.Minute)

				w.Header().Set(headerRateLimitRequests, strconv.Itoa(rpm))
				w.Header().Set(headerRateLimitRemainingRequests, strconv.FormatInt(result.Remaining, 10))
				w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))

				if !result.Allowed {
					slog.Warn("rate limit exceeded",
						"request_id", reqID,
						"tenant", info.ID,
						"dimension", "rpm",
						"limit", rpm,
					)
					metrics.RecordRateLimitHit("rpm")
					w.Header().Set(headerRetryAfter, strconv.Itoa(int(result.RetryAfter.Seconds())))
					httputil.WriteRateLimitError(w, reqID,
						fmt.Sprintf("Rate limit exceeded: %d requests per minute. Retry after %s", rpm, result.ResetAt.Format(time.RFC3339)))
					return
				}
			}

			if cfg.DailySpendMicroUSD > 0 {
				res, _ := budget.CheckDailySpend(r.Context(), info.ID, cfg.DailySpendMicroUSD)
				if !res.Allowed {
					slog.Warn("daily budget exceeded",
						"request_id", reqID,
						"tenant", info.ID,
						"spent_micro_usd", res.SpentMicroUSD,
						"limit_micro_usd", res.LimitMicroUSD,
					)
					metrics.RecordRateLimitHit("budget")
					httputil.WriteBudgetExceededError(w, reqID,
						fmt.Sprintf("Daily budget exceeded: spent %d of %d micro-USD", res.SpentMicroUSD, res.LimitMicroUSD))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
