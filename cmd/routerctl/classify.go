package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/af-corp/taskrouter/internal/classifier"
	"github.com/af-corp/taskrouter/internal/types"
)

var classifyFlags struct {
	category string
}

var classifyCmd = &cobra.Command{
	Use:   "classify <description>",
	Short: "Show the category a task description routes to",
	Example: `  routerctl classify "summarize this meeting transcript"
  routerctl classify --category REASON "anything"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().StringVar(&classifyFlags.category, "category", "", "explicit category, bypasses keyword matching")
}

func runClassify(cmd *cobra.Command, args []string) error {
	loader, err := loadConfig()
	if err != nil {
		return err
	}
	cat := loader.Catalog()

	task := types.Task{Description: strings.Join(args, " ")}
	if classifyFlags.category != "" {
		c, ok := types.ParseCategory(classifyFlags.category)
		if !ok {
			return fmt.Errorf("unknown category %q", classifyFlags.category)
		}
		task.ExplicitCategory = c
	}

	d := classifier.New(cat.KeywordTable(), cat.Default()).Explain(task)

	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	fmt.Fprintf(out, "category: %s\n", d.Category)
	if d.Explicit {
		fmt.Fprintln(out, "source:   explicit")
		return nil
	}
	if len(d.Matched) > 0 {
		fmt.Fprintf(out, "matched:  %s\n", strings.Join(d.Matched, ", "))
	}
	cats := make([]string, 0, len(d.Scores))
	for c := range d.Scores {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(out, "  %-10s %d\n", c, d.Scores[types.TaskCategory(c)])
	}
	return nil
}
