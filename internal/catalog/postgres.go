package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/af-corp/taskrouter/internal/types"
)

const selectCatalogSQL = `SELECT provider_id, category, model_id, max_tokens, cost_per_1k_tokens, capabilities, default_temperature
FROM provider_catalog
WHERE enabled
ORDER BY category, position`

// PostgresSource reads catalog entries from the provider_catalog table.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// OpenPostgres opens a pool through the pgx stdlib driver.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	return db, nil
}

func (s *PostgresSource) Load(ctx context.Context) ([]types.ProviderConfig, error) {
	rows, err := s.db.QueryContext(ctx, selectCatalogSQL)
	if err != nil {
		return nil, fmt.Errorf("query provider catalog: %w", err)
	}
	defer rows.Close()

	var out []types.ProviderConfig
	for rows.Next() {
		var (
			p            types.ProviderConfig
			category     string
			capabilities string
		)
		if err := rows.Scan(&p.ProviderID, &category, &p.ModelID, &p.MaxTokens,
			&p.CostPer1kTokens, &capabilities, &p.DefaultTemperature); err != nil {
			return nil, fmt.Errorf("scan provider catalog row: %w", err)
		}

		cat, ok := types.ParseCategory(category)
		if !ok {
			return nil, fmt.Errorf("provider %s: unknown category %q", p.ProviderID, category)
		}
		p.Category = cat

		caps, err := parseCapabilities(capabilities)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.ProviderID, err)
		}
		p.Capabilities = caps
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider catalog: %w", err)
	}
	return out, nil
}

// parseCapabilities reads the comma-separated capabilities column.
func parseCapabilities(s string) ([]types.Capability, error) {
	var out []types.Capability
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, ok := types.ParseCapability(part)
		if !ok {
			return nil, fmt.Errorf("unknown capability %q", part)
		}
		out = append(out, c)
	}
	return out, nil
}
