package config

import (
	"fmt"

	"github.com/af-corp/taskrouter/internal/types"
)

// CatalogConfig is the file form of the provider catalog.
type CatalogConfig struct {
	DefaultCategory string                    `yaml:"default_category" validate:"omitempty,category"`
	Categories      map[string][]CatalogEntry `yaml:"categories" validate:"required,dive,keys,category,endkeys,min=1,dive"`
	Keywords        map[string][]string       `yaml:"keywords" validate:"omitempty,dive,keys,category,endkeys,dive,required"`
}

type CatalogEntry struct {
	Provider           string   `yaml:"provider" validate:"required"`
	Model              string   `yaml:"model" validate:"required"`
	MaxTokens          int      `yaml:"max_tokens" validate:"gte=0"`
	CostPer1kTokens    float64  `yaml:"cost_per_1k_tokens" validate:"gte=0"`
	Capabilities       []string `yaml:"capabilities" validate:"dive,capability"`
	DefaultTemperature float64  `yaml:"default_temperature" validate:"gte=0,lte=2"`
}

// Entries flattens the catalog into provider configs. Declaration order is kept
// within each category; categories follow types.AllCategories.
func (c *CatalogConfig) Entries() ([]types.ProviderConfig, error) {
	byCategory := make(map[types.TaskCategory][]CatalogEntry, len(c.Categories))
	for name, entries := range c.Categories {
		cat, ok := types.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		if _, dup := byCategory[cat]; dup {
			return nil, fmt.Errorf("category %s declared twice", cat)
		}
		byCategory[cat] = entries
	}

	var out []types.ProviderConfig
	for _, cat := range types.AllCategories() {
		for _, e := range byCategory[cat] {
			p, err := e.toProviderConfig(cat)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat, err)
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func (e CatalogEntry) toProviderConfig(cat types.TaskCategory) (types.ProviderConfig, error) {
	caps := make([]types.Capability, 0, len(e.Capabilities))
	for _, s := range e.Capabilities {
		c, ok := types.ParseCapability(s)
		if !ok {
			return types.ProviderConfig{}, fmt.Errorf("provider %s: unknown capability %q", e.Provider, s)
		}
		caps = append(caps, c)
	}
	return types.ProviderConfig{
		ProviderID:         e.Provider,
		Category:           cat,
		ModelID:            e.Model,
		MaxTokens:          e.MaxTokens,
		CostPer1kTokens:    e.CostPer1kTokens,
		Capabilities:       caps,
		DefaultTemperature: e.DefaultTemperature,
	}, nil
}

// KeywordTable returns the configured classifier keywords keyed by category.
func (c *CatalogConfig) KeywordTable() map[types.TaskCategory][]string {
	if len(c.Keywords) == 0 {
		return nil
	}
	out := make(map[types.TaskCategory][]string, len(c.Keywords))
	for name, words := range c.Keywords {
		if cat, ok := types.ParseCategory(name); ok {
			out[cat] = append(out[cat], words...)
		}
	}
	return out
}

// Default returns the configured default category, falling back to GENERAL.
func (c *CatalogConfig) Default() types.TaskCategory {
	if cat, ok := types.ParseCategory(c.DefaultCategory); ok {
		return cat
	}
	return types.CategoryGeneral
}
