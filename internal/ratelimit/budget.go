package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// BudgetResult is the outcome of a budget check.
type BudgetResult struct {
	Allowed       bool
	SpentMicroUSD int64
	LimitMicroUSD int64
}

// BudgetTracker tracks daily spend per tenant via Redis, in micro-USD.
type BudgetTracker struct {
	rdb *redis.Client
	now func() time.Time
}

// NewBudgetTracker creates a budget tracker. If rdb is nil, all checks pass.
func NewBudgetTracker(rdb *redis.Client) *BudgetTracker {
	return &BudgetTracker{rdb: rdb, now: time.Now}
}

func (b *BudgetTracker) dailyKey(tenantID string) string {
	day := b.now().UTC().Format("2006-01-02")
	return fmt.Sprintf("taskrouter:budget:daily:%s:%s", tenantID, day)
}

// MicroUSD converts a USD amount to whole micro-dollars, rounding up so that
// tiny completions still count against the budget.
func MicroUSD(usd float64) int64 {
	if usd <= 0 {
		return 0
	}
	return int64(math.Ceil(usd * 1_000_000))
}

// CheckDailySpend reports whether the tenant is under its daily limit.
// limitMicroUSD <= 0 disables the check.
func (b *BudgetTracker) CheckDailySpend(ctx context.Context, tenantID string, limitMicroUSD int64) (BudgetResult, error) {
	if b.rdb == nil || limitMicroUSD <= 0 {
		return BudgetResult{Allowed: true, LimitMicroUSD: limitMicroUSD}, nil
	}

	spent, err := b.rdb.Get(ctx, b.dailyKey(tenantID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		// Fail open on Redis errors
		slog.Warn("budget check failed, allowing request", "tenant", tenantID, "error", err)
		return BudgetResult{Allowed: true, LimitMicroUSD: limitMicroUSD}, nil
	}

	return BudgetResult{
		Allowed:       spent < limitMicroUSD,
		SpentMicroUSD: spent,
		LimitMicroUSD: limitMicroUSD,
	}, nil
}

// RecordSpend adds cost to the tenant's daily spend counter.
func (b *BudgetTracker) RecordSpend(ctx context.Context, tenantID string, costMicroUSD int64) error {
	if b.rdb == nil || costMicroUSD <= 0 {
		return nil
	}

	key := b.dailyKey(tenantID)
	pipe := b.rdb.Pipeline()
	pipe.IncrBy(ctx, key, costMicroUSD)
	// Expire at end of day UTC + 1 hour buffer
	now := b.now().UTC()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	pipe.Expire(ctx, key, endOfDay.Sub(now)+time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}
