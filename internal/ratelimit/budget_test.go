package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestBudgetTracker_NilRedis_FailOpen(t *testing.T) {
	b := NewBudgetTracker(nil)
	result, err := b.CheckDailySpend(context.Background(), "acme", 10_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Error("expected allowed when Redis is nil")
	}
	if result.LimitMicroUSD != 10_000_000 {
		t.Errorf("expected limit=10000000, got %d", result.LimitMicroUSD)
	}
}

func TestBudgetTracker_NilRedis_RecordSpend(t *testing.T) {
	b := NewBudgetTracker(nil)
	// RecordSpend should be a no-op with nil Redis
	if err := b.RecordSpend(context.Background(), "acme", 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBudgetTracker_RedisError_FailOpen(t *testing.T) {
	b := NewBudgetTracker(unreachableRedis(t))
	result, err := b.CheckDailySpend(context.Background(), "acme", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Error("expected fail open on Redis error")
	}
}

func TestBudgetTracker_ZeroCost(t *testing.T) {
	b := NewBudgetTracker(unreachableRedis(t))
	// Zero spend never touches Redis.
	if err := b.RecordSpend(context.Background(), "acme", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBudgetTracker_DailyKey(t *testing.T) {
	b := NewBudgetTracker(nil)
	b.now = func() time.Time { return time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC) }
	if got := b.dailyKey("acme"); got != "taskrouter:budget:daily:acme:2026-10-17" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestMicroUSD(t *testing.T) {
	tests := []struct {
		usd  float64
		want int64
	}{
		{0, 0},
		{-1, 0},
		{1, 1_000_000},
		{0.0225, 22_500},
		{0.0000001, 1},
	}
	for _, tt := range tests {
		if got := MicroUSD(tt.usd); got != tt.want {
			t.Errorf("MicroUSD(%v) = %d, want %d", tt.usd, got, tt.want)
		}
	}
}
