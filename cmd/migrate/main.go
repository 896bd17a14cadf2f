package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/af-corp/taskrouter/internal/config"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	dbURL := flag.String("db-url", "", "database URL (overrides config and env)")
	configDir := flag.String("config", "configs", "config directory holding gateway.yaml")
	migrationsPath := flag.String("path", "migrations", "path to migrations directory")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	_ = godotenv.Load()

	dsn, err := resolveDSN(*dbURL, *configDir)
	if err != nil {
		logger.Error("failed to resolve database url", "error", err)
		os.Exit(1)
	}

	m, err := migrate.New("file://"+*migrationsPath, dsn)
	if err != nil {
		logger.Error("failed to create migrator", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	default:
		logger.Error("invalid direction, use 'up' or 'down'", "direction", *direction)
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	v, dirty, _ := m.Version()
	logger.Info("migration complete", "direction", *direction, "version", v, "dirty", dirty)
}

// resolveDSN prefers the flag, then TASKROUTER_DATABASE_URL, then the
// database section of gateway.yaml (which itself expands ${DB_*} variables).
func resolveDSN(flagURL, configDir string) (string, error) {
	if flagURL != "" {
		return flagURL, nil
	}
	if v := os.Getenv("TASKROUTER_DATABASE_URL"); v != "" {
		return v, nil
	}
	cfg := config.DefaultConfig()
	if err := config.LoadFile(filepath.Join(configDir, "gateway.yaml"), cfg); err != nil {
		return "", fmt.Errorf("load gateway config: %w", err)
	}
	return cfg.Database.DSN(), nil
}
