package stats

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestWindow_RecordAndSnapshot(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(time.Minute, 10*time.Second, clock.Now)

	w.Record(true, 100*time.Millisecond)
	w.Record(true, 300*time.Millisecond)
	w.Record(false, 200*time.Millisecond)

	s := w.Snapshot()
	if s.SuccessCount != 2 || s.FailureCount != 1 {
		t.Errorf("expected 2 successes and 1 failure, got %+v", s)
	}
	if s.SampleCount != 3 {
		t.Errorf("expected 3 samples, got %d", s.SampleCount)
	}
	if s.TotalLatencyMs != 600 {
		t.Errorf("expected 600ms total latency, got %d", s.TotalLatencyMs)
	}
}

func TestWindow_ExpiresOldBuckets(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(time.Minute, 10*time.Second, clock.Now)

	w.Record(false, time.Second)
	clock.Advance(30 * time.Second)
	w.Record(true, time.Second)

	if s := w.Snapshot(); s.SampleCount != 2 {
		t.Fatalf("expected 2 samples inside the window, got %d", s.SampleCount)
	}

	clock.Advance(45 * time.Second)
	s := w.Snapshot()
	if s.FailureCount != 0 || s.SuccessCount != 1 {
		t.Errorf("expected only the recent success to remain, got %+v", s)
	}

	clock.Advance(time.Minute)
	if s := w.Snapshot(); s.SampleCount != 0 {
		t.Errorf("expected empty window, got %+v", s)
	}
}

func TestWindow_ReusesSlotsWhenFull(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(30*time.Second, 10*time.Second, clock.Now)

	for i := 0; i < 10; i++ {
		w.Record(true, 0)
		clock.Advance(10 * time.Second)
	}
	if len(w.buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(w.buckets))
	}
	if s := w.Snapshot(); s.SuccessCount > 3 {
		t.Errorf("expected at most 3 live samples, got %d", s.SuccessCount)
	}
}

func TestNewWindow_BucketLargerThanWindow(t *testing.T) {
	w := NewWindow(time.Second, time.Minute, nil)
	if len(w.buckets) != 1 {
		t.Errorf("expected a single bucket, got %d", len(w.buckets))
	}
}
