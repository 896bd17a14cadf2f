package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreachableRedis returns a client whose every command fails fast.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestLimiter_NilRedis_FailOpen(t *testing.T) {
	l := NewLimiter(nil)
	result, err := l.Check(context.Background(), "acme", 60, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Error("expected allowed when Redis is nil")
	}
	if result.Remaining != 59 {
		t.Errorf("expected remaining=59, got %d", result.Remaining)
	}
}

func TestLimiter_NilRedis_MultipleChecks(t *testing.T) {
	l := NewLimiter(nil)
	// Without Redis, every check passes (fail open)
	for i := 0; i < 100; i++ {
		result, _ := l.Check(context.Background(), "acme", 10, time.Minute)
		if !result.Allowed {
			t.Fatalf("expected allowed on check %d", i)
		}
	}
}

func TestLimiter_RedisError_FailOpen(t *testing.T) {
	l := NewLimiter(unreachableRedis(t))
	result, err := l.Check(context.Background(), "acme", 5, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed || result.Remaining != 5 {
		t.Errorf("expected fail-open result, got %+v", result)
	}
}

func TestLimiter_ZeroLimitDisabled(t *testing.T) {
	l := NewLimiter(unreachableRedis(t))
	result, _ := l.Check(context.Background(), "acme", 0, time.Minute)
	if !result.Allowed {
		t.Error("expected a zero limit to disable the check")
	}
}

func TestLimiterKey(t *testing.T) {
	if got := limiterKey("acme"); got != "taskrouter:rl:rpm:acme" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestWindowResult(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	window := time.Minute

	tests := []struct {
		name       string
		count      int64
		allowed    bool
		oldest     time.Time
		remaining  int64
		retryAfter time.Duration
	}{
		{"allowed", 3, true, time.Time{}, 7, 0},
		{"denied oldest mid window", 10, false, now.Add(-40 * time.Second), 0, 20 * time.Second},
		{"denied oldest about to expire", 10, false, now.Add(-window), 0, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var oldest int64
			if !tt.oldest.IsZero() {
				oldest = tt.oldest.UnixMicro()
			}
			got := windowResult(now, window, 10, tt.count, tt.allowed, oldest)
			if got.Allowed != tt.allowed {
				t.Errorf("expected allowed=%v, got %v", tt.allowed, got.Allowed)
			}
			if got.Remaining != tt.remaining {
				t.Errorf("expected remaining=%d, got %d", tt.remaining, got.Remaining)
			}
			if got.RetryAfter != tt.retryAfter {
				t.Errorf("expected retry after %s, got %s", tt.retryAfter, got.RetryAfter)
			}
		})
	}
}
