// Package stats keeps in-memory rolling outcome aggregates per provider.
// They are advisory ranking signals and are never persisted.
package stats

import (
	"sort"
	"sync"
	"time"
)

// Snapshot is the rolling aggregate for one provider.
type Snapshot struct {
	SuccessCount   int64 `json:"success_count"`
	FailureCount   int64 `json:"failure_count"`
	TotalLatencyMs int64 `json:"total_latency_ms"`
	SampleCount    int64 `json:"sample_count"`
}

// SuccessRate is successCount / max(1, successCount+failureCount).
func (s Snapshot) SuccessRate() float64 {
	total := s.SuccessCount + s.FailureCount
	if total < 1 {
		total = 1
	}
	return float64(s.SuccessCount) / float64(total)
}

// AvgLatencyMs is zero when there are no samples.
func (s Snapshot) AvgLatencyMs() float64 {
	if s.SampleCount == 0 {
		return 0
	}
	return float64(s.TotalLatencyMs) / float64(s.SampleCount)
}

// Collector owns one Window per provider. Windows are created lazily and
// each has its own lock, so providers never contend with each other.
type Collector struct {
	mu         sync.RWMutex
	windows    map[string]*Window
	window     time.Duration
	bucketSize time.Duration
	now        func() time.Time
}

func NewCollector(window, bucketSize time.Duration) *Collector {
	return &Collector{
		windows:    make(map[string]*Window),
		window:     window,
		bucketSize: bucketSize,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

func (c *Collector) get(providerID string) *Window {
	c.mu.RLock()
	w, ok := c.windows[providerID]
	c.mu.RUnlock()
	if ok {
		return w
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.windows[providerID]; ok {
		return w
	}
	w = NewWindow(c.window, c.bucketSize, func() time.Time { return c.now() })
	c.windows[providerID] = w
	return w
}

// Record adds one call outcome for providerID.
func (c *Collector) Record(providerID string, success bool, latency time.Duration) {
	c.get(providerID).Record(success, latency)
}

// Snapshot returns the rolling aggregate for providerID. Unknown providers
// yield a zero snapshot without allocating a window.
func (c *Collector) Snapshot(providerID string) Snapshot {
	c.mu.RLock()
	w, ok := c.windows[providerID]
	c.mu.RUnlock()
	if !ok {
		return Snapshot{}
	}
	return w.Snapshot()
}

// Providers lists every provider with a window, sorted.
func (c *Collector) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.windows))
	for id := range c.windows {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
