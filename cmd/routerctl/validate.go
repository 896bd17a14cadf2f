package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/af-corp/taskrouter/internal/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration directory",
	Long: `Load gateway.yaml, providers.yaml and catalog.yaml the way the gateway does
and report every validation problem. Exits non-zero when invalid.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	loader, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration in %s is invalid: %w", configDir, err)
	}
	entries, err := loader.Catalog().Entries()
	if err != nil {
		return fmt.Errorf("configuration in %s is invalid: %w", configDir, err)
	}

	perCategory := make(map[types.TaskCategory]int)
	for _, e := range entries {
		perCategory[e.Category]++
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "configuration OK: %d catalog entries, %d providers\n",
		len(entries), len(loader.Providers().Providers))
	for _, c := range types.AllCategories() {
		if perCategory[c] == 0 {
			fmt.Fprintf(out, "warning: %s has no providers; tasks in it will fail with no candidates\n", c)
		}
	}
	return nil
}
