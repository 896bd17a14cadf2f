package stats

import (
	"sync"
	"time"
)

// Window aggregates call outcomes over a rolling time window.
//
// The window is divided into fixed-size buckets. Buckets older than the
// window are cleared lazily on every Record and Snapshot.
type Window struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []bucket
	now        func() time.Time
	mu         sync.Mutex
}

type bucket struct {
	timestamp      time.Time
	successes      int64
	failures       int64
	totalLatencyMs int64
}

// NewWindow creates a rolling window, e.g. NewWindow(5*time.Minute, 10*time.Second).
func NewWindow(window, bucketSize time.Duration, now func() time.Time) *Window {
	if bucketSize <= 0 || bucketSize > window {
		bucketSize = window
	}
	numBuckets := int(window / bucketSize)
	if numBuckets == 0 {
		numBuckets = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Window{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]bucket, numBuckets),
		now:        now,
	}
}

// Record adds one outcome to the current bucket.
func (w *Window) Record(success bool, latency time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.pruneLocked(now)

	b := w.findOrCreateBucketLocked(now)
	if success {
		b.successes++
	} else {
		b.failures++
	}
	b.totalLatencyMs += latency.Milliseconds()
}

// Snapshot sums every live bucket.
func (w *Window) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(w.now())

	var s Snapshot
	for i := range w.buckets {
		b := &w.buckets[i]
		if b.timestamp.IsZero() {
			continue
		}
		s.SuccessCount += b.successes
		s.FailureCount += b.failures
		s.TotalLatencyMs += b.totalLatencyMs
	}
	s.SampleCount = s.SuccessCount + s.FailureCount
	return s
}

// pruneLocked clears buckets older than the window. Caller must hold mu.
func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.window)
	for i := range w.buckets {
		if !w.buckets[i].timestamp.IsZero() && !w.buckets[i].timestamp.After(cutoff) {
			w.buckets[i] = bucket{}
		}
	}
}

// findOrCreateBucketLocked returns the bucket for now, reusing an empty or
// the oldest slot when none exists. Caller must hold mu.
func (w *Window) findOrCreateBucketLocked(now time.Time) *bucket {
	bucketTime := now.Truncate(w.bucketSize)

	target := -1
	for i := range w.buckets {
		if w.buckets[i].timestamp.Equal(bucketTime) {
			return &w.buckets[i]
		}
		if target == -1 && w.buckets[i].timestamp.IsZero() {
			target = i
		}
	}

	if target == -1 {
		target = 0
		for i := 1; i < len(w.buckets); i++ {
			if w.buckets[i].timestamp.Before(w.buckets[target].timestamp) {
				target = i
			}
		}
	}

	w.buckets[target] = bucket{timestamp: bucketTime}
	return &w.buckets[target]
}
