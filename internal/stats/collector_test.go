package stats

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSnapshot_SuccessRate(t *testing.T) {
	tests := []struct {
		s    Snapshot
		want float64
	}{
		{Snapshot{}, 0},
		{Snapshot{SuccessCount: 3, FailureCount: 1}, 0.75},
		{Snapshot{SuccessCount: 0, FailureCount: 4}, 0},
		{Snapshot{SuccessCount: 5}, 1},
	}
	for _, tt := range tests {
		if got := tt.s.SuccessRate(); got != tt.want {
			t.Errorf("%+v.SuccessRate() = %f, want %f", tt.s, got, tt.want)
		}
	}
}

func TestSnapshot_AvgLatency(t *testing.T) {
	s := Snapshot{TotalLatencyMs: 900, SampleCount: 3}
	if got := s.AvgLatencyMs(); got != 300 {
		t.Errorf("expected 300, got %f", got)
	}
	if got := (Snapshot{}).AvgLatencyMs(); got != 0 {
		t.Errorf("expected 0 for empty snapshot, got %f", got)
	}
}

func TestCollector_PerProvider(t *testing.T) {
	clock := newFakeClock()
	c := NewCollector(time.Minute, 10*time.Second).WithClock(clock.Now)

	c.Record("qwen", true, 100*time.Millisecond)
	c.Record("qwen", false, 300*time.Millisecond)
	c.Record("claude", true, 50*time.Millisecond)

	qwen := c.Snapshot("qwen")
	if qwen.SuccessCount != 1 || qwen.FailureCount != 1 {
		t.Errorf("unexpected qwen snapshot: %+v", qwen)
	}
	if qwen.AvgLatencyMs() != 200 {
		t.Errorf("expected qwen avg latency 200, got %f", qwen.AvgLatencyMs())
	}
	if claude := c.Snapshot("claude"); claude.SuccessRate() != 1 {
		t.Errorf("expected claude success rate 1, got %f", claude.SuccessRate())
	}

	if s := c.Snapshot("unknown"); s != (Snapshot{}) {
		t.Errorf("expected zero snapshot for unknown provider, got %+v", s)
	}
	if got := c.Providers(); len(got) != 2 || got[0] != "claude" || got[1] != "qwen" {
		t.Errorf("unexpected providers: %v", got)
	}
}

func TestCollector_WindowExpiry(t *testing.T) {
	clock := newFakeClock()
	c := NewCollector(time.Minute, 10*time.Second).WithClock(clock.Now)

	c.Record("qwen", false, time.Second)
	clock.Advance(2 * time.Minute)

	if s := c.Snapshot("qwen"); s.SampleCount != 0 {
		t.Errorf("expected expired samples to be dropped, got %+v", s)
	}
}

func TestCollector_ConcurrentRecord(t *testing.T) {
	c := NewCollector(time.Minute, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		provider := fmt.Sprintf("p%d", i%4)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Record(provider, j%2 == 0, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		s := c.Snapshot(fmt.Sprintf("p%d", i))
		if s.SampleCount != 200 {
			t.Errorf("p%d: expected 200 samples, got %d", i, s.SampleCount)
		}
	}
}
