package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/af-corp/taskrouter/internal/catalog"
	"github.com/af-corp/taskrouter/internal/types"
)

var candidatesFlags struct {
	vision     bool
	structured bool
	maxCost    float64
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates <category>",
	Short: "List the providers eligible for a category",
	Long: `List the catalog entries for a category that satisfy the given constraints,
in catalog order. Live ranking also uses rolling success rate and latency,
which only the running gateway knows.`,
	Example: `  routerctl candidates CODEGEN
  routerctl candidates EXTRACT --vision --max-cost 0.001`,
	Args: cobra.ExactArgs(1),
	RunE: runCandidates,
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
	candidatesCmd.Flags().BoolVar(&candidatesFlags.vision, "vision", false, "require vision capability")
	candidatesCmd.Flags().BoolVar(&candidatesFlags.structured, "structured", false, "require structured output (jsonMode)")
	candidatesCmd.Flags().Float64Var(&candidatesFlags.maxCost, "max-cost", 0, "maximum cost per 1k tokens (0 = no limit)")
}

func runCandidates(cmd *cobra.Command, args []string) error {
	category, ok := types.ParseCategory(args[0])
	if !ok {
		return fmt.Errorf("unknown category %q", args[0])
	}

	loader, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := catalog.Build(context.Background(), catalog.NewFileSource(loader.Catalog))
	if err != nil {
		return err
	}

	constraints := types.Constraints{
		RequiresVision:           candidatesFlags.vision,
		RequiresStructuredOutput: candidatesFlags.structured,
	}
	if candidatesFlags.maxCost > 0 {
		constraints.MaxCostPer1kTokens = &candidatesFlags.maxCost
	}
	list := cat.CandidatesFor(category, constraints)

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	if len(list) == 0 {
		fmt.Fprintf(out, "no providers satisfy the constraints for %s\n", category)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tMODEL\tCOST/1K\tMAX TOKENS\tCAPABILITIES")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%.5f\t%d\t%v\n", p.ProviderID, p.ModelID, p.CostPer1kTokens, p.MaxTokens, p.Capabilities)
	}
	return tw.Flush()
}
