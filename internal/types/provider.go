package types

import (
	"slices"
	"strings"
)

type Capability string

const (
	CapabilityVision   Capability = "vision"
	CapabilityJSONMode Capability = "jsonMode"
)

func ParseCapability(s string) (Capability, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vision":
		return CapabilityVision, true
	case "jsonmode", "json_mode", "json":
		return CapabilityJSONMode, true
	default:
		return "", false
	}
}

// ProviderConfig is one catalog entry: a provider serving a model for a category.
type ProviderConfig struct {
	ProviderID         string       `json:"provider_id"`
	Category           TaskCategory `json:"category"`
	ModelID            string       `json:"model_id"`
	MaxTokens          int          `json:"max_tokens"`
	CostPer1kTokens    float64      `json:"cost_per_1k_tokens"`
	Capabilities       []Capability `json:"capabilities"`
	DefaultTemperature float64      `json:"default_temperature"`
}

func (p ProviderConfig) Has(c Capability) bool {
	return slices.Contains(p.Capabilities, c)
}

// Satisfies reports whether the provider meets every hard constraint.
// MaxLatencyMs is a timeout, not a filter.
func (p ProviderConfig) Satisfies(c Constraints) bool {
	if c.RequiresVision && !p.Has(CapabilityVision) {
		return false
	}
	if c.RequiresStructuredOutput && !p.Has(CapabilityJSONMode) {
		return false
	}
	if c.MaxCostPer1kTokens != nil && p.CostPer1kTokens > *c.MaxCostPer1kTokens {
		return false
	}
	return true
}

// EstimateCostUSD prices a completion at the provider's blended per-1k rate.
func (p ProviderConfig) EstimateCostUSD(tokens int) float64 {
	return float64(tokens) / 1000 * p.CostPer1kTokens
}
