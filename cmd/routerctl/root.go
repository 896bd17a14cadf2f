package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/af-corp/taskrouter/internal/config"
)

var (
	configDir string
	jsonOut   bool
)

var rootCmd = &cobra.Command{
	Use:   "routerctl",
	Short: "Inspect taskrouter configuration and health",
	Long: `routerctl loads the same configuration directory as the gateway and answers
routing questions without sending any provider traffic: which category a
description classifies into, which providers are eligible for a category,
and whether the configuration validates.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", "configs", "configuration directory")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print JSON output")
}

// loadConfig reads and validates the configuration directory quietly.
func loadConfig() (*config.Loader, error) {
	loader := config.NewLoader(configDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}
