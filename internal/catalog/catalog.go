// Package catalog holds the immutable category to provider mapping the router
// selects candidates from.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/af-corp/taskrouter/internal/types"
)

var ErrEmptyCatalog = errors.New("catalog has no providers")

// Catalog maps task categories to provider configs ordered by ascending cost.
// It is never mutated after New returns, so readers need no locking.
type Catalog struct {
	byCategory map[types.TaskCategory][]types.ProviderConfig
	providers  []string
}

// New groups entries by category and stable-sorts each group by cost, so
// equally priced providers keep their declaration order.
func New(entries []types.ProviderConfig) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{byCategory: make(map[types.TaskCategory][]types.ProviderConfig)}
	seen := make(map[string]bool)
	type key struct {
		provider string
		category types.TaskCategory
	}
	dup := make(map[key]bool)

	for _, e := range entries {
		if e.ProviderID == "" {
			return nil, fmt.Errorf("catalog entry for %s has no provider id", e.Category)
		}
		if !e.Category.Valid() {
			return nil, fmt.Errorf("provider %s: unknown category %q", e.ProviderID, e.Category)
		}
		if e.CostPer1kTokens < 0 {
			return nil, fmt.Errorf("provider %s: negative cost %f", e.ProviderID, e.CostPer1kTokens)
		}
		k := key{e.ProviderID, e.Category}
		if dup[k] {
			return nil, fmt.Errorf("provider %s listed twice for %s", e.ProviderID, e.Category)
		}
		dup[k] = true

		e.Capabilities = append([]types.Capability(nil), e.Capabilities...)
		c.byCategory[e.Category] = append(c.byCategory[e.Category], e)
		if !seen[e.ProviderID] {
			seen[e.ProviderID] = true
			c.providers = append(c.providers, e.ProviderID)
		}
	}

	for _, list := range c.byCategory {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CostPer1kTokens < list[j].CostPer1kTokens
		})
	}
	return c, nil
}

// CandidatesFor returns the providers for category that satisfy every hard
// constraint, cheapest first. Excluded providers are dropped, not down-ranked.
func (c *Catalog) CandidatesFor(category types.TaskCategory, constraints types.Constraints) []types.ProviderConfig {
	list := c.byCategory[category]
	out := make([]types.ProviderConfig, 0, len(list))
	for _, p := range list {
		if p.Satisfies(constraints) {
			out = append(out, p)
		}
	}
	return out
}

// Entries returns every provider registered for category in cost order.
func (c *Catalog) Entries(category types.TaskCategory) []types.ProviderConfig {
	return append([]types.ProviderConfig(nil), c.byCategory[category]...)
}

// Lookup finds the config for providerID, preferring the given category and
// otherwise the first category (in AllCategories order) that lists it.
func (c *Catalog) Lookup(providerID string, category types.TaskCategory) (types.ProviderConfig, bool) {
	if p, ok := find(c.byCategory[category], providerID); ok {
		return p, true
	}
	for _, cat := range types.AllCategories() {
		if p, ok := find(c.byCategory[cat], providerID); ok {
			return p, true
		}
	}
	return types.ProviderConfig{}, false
}

func find(list []types.ProviderConfig, providerID string) (types.ProviderConfig, bool) {
	for _, p := range list {
		if p.ProviderID == providerID {
			return p, true
		}
	}
	return types.ProviderConfig{}, false
}

// Categories returns the categories that have at least one provider.
func (c *Catalog) Categories() []types.TaskCategory {
	var out []types.TaskCategory
	for _, cat := range types.AllCategories() {
		if len(c.byCategory[cat]) > 0 {
			out = append(out, cat)
		}
	}
	return out
}

// Providers returns each distinct provider id in first-seen order.
func (c *Catalog) Providers() []string {
	return append([]string(nil), c.providers...)
}
