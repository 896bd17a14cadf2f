package config

import "time"

// ProvidersConfig holds connection settings for each provider endpoint, keyed by provider id.
type ProvidersConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers" validate:"dive"`
}

type ProviderConfig struct {
	Type    string            `yaml:"type" validate:"required,oneof=openai anthropic gemini mock"`
	BaseURL string            `yaml:"base_url" validate:"omitempty,url"`
	APIKey  string            `yaml:"api_key"`
	Timeout time.Duration     `yaml:"timeout" validate:"gte=0"`
	Headers map[string]string `yaml:"headers,omitempty"`
}
