package router

import (
	"sort"

	"github.com/af-corp/taskrouter/internal/stats"
	"github.com/af-corp/taskrouter/internal/types"
)

// rankCandidates orders candidates by ascending cost. Within a cost tier the
// higher recent success rate wins, then the lower average latency; full ties
// keep catalog order. When every candidate costs the same, the metrics decide
// the whole order. Ranking never removes a candidate.
func rankCandidates(candidates []types.ProviderConfig, snapshot func(providerID string) stats.Snapshot) []types.ProviderConfig {
	snaps := make(map[string]stats.Snapshot, len(candidates))
	for _, c := range candidates {
		snaps[c.ProviderID] = snapshot(c.ProviderID)
	}

	out := append([]types.ProviderConfig(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CostPer1kTokens != b.CostPer1kTokens {
			return a.CostPer1kTokens < b.CostPer1kTokens
		}
		sa, sb := snaps[a.ProviderID], snaps[b.ProviderID]
		if ra, rb := sa.SuccessRate(), sb.SuccessRate(); ra != rb {
			return ra > rb
		}
		return sa.AvgLatencyMs() < sb.AvgLatencyMs()
	})
	return out
}
