package catalog

import (
	"context"
	"fmt"

	"github.com/af-corp/taskrouter/internal/config"
	"github.com/af-corp/taskrouter/internal/types"
)

// Source supplies catalog entries at startup or on reload.
type Source interface {
	Load(ctx context.Context) ([]types.ProviderConfig, error)
}

// FileSource reads entries from a parsed catalog.yaml.
type FileSource struct {
	cfg func() *config.CatalogConfig
}

func NewFileSource(cfg func() *config.CatalogConfig) *FileSource {
	return &FileSource{cfg: cfg}
}

func (s *FileSource) Load(_ context.Context) ([]types.ProviderConfig, error) {
	cfg := s.cfg()
	if cfg == nil {
		return nil, fmt.Errorf("catalog config not loaded")
	}
	return cfg.Entries()
}

// Build loads entries from src and constructs a Catalog.
func Build(ctx context.Context, src Source) (*Catalog, error) {
	entries, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog entries: %w", err)
	}
	return New(entries)
}
