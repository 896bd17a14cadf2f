package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/af-corp/taskrouter/internal/types"
)

// run executes the root command against the repository's sample configs.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config-dir", "../../configs"}, args...))
	t.Cleanup(func() {
		jsonOut = false
		classifyFlags.category = ""
		candidatesFlags.vision = false
		candidatesFlags.structured = false
		candidatesFlags.maxCost = 0
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestValidateSampleConfig(t *testing.T) {
	out, err := run(t, "validate")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "configuration OK") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestValidateMissingDir(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"--config-dir", t.TempDir(), "validate"})
	t.Cleanup(func() { configDir = "configs" })
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an error for an empty config dir")
	}
}

func TestClassifyCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want types.TaskCategory
	}{
		{"keyword", []string{"classify", "--json", "summarize", "this", "transcript"}, types.CategorySummarize},
		{"explicit", []string{"classify", "--json", "--category", "REASON", "summarize", "this"}, types.CategoryReason},
		{"fallback", []string{"classify", "--json", "hello", "there"}, types.CategoryGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var d struct{ Category types.TaskCategory }
			if err := json.Unmarshal([]byte(out), &d); err != nil {
				t.Fatalf("invalid json %q: %v", out, err)
			}
			if d.Category != tt.want {
				t.Errorf("expected %s, got %s", tt.want, d.Category)
			}
		})
	}
}

func TestClassifyUnknownCategory(t *testing.T) {
	if _, err := run(t, "classify", "--category", "POETRY", "x"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestCandidatesCommand(t *testing.T) {
	out, err := run(t, "candidates", "--json", "CODEGEN", "--max-cost", "0.01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var list []types.ProviderConfig
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if len(list) != 1 || list[0].ProviderID != "qwen" {
		t.Errorf("expected only qwen under the cost cap, got %+v", list)
	}
}

func TestCandidatesTable(t *testing.T) {
	out, err := run(t, "candidates", "EXTRACT", "--vision")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "PROVIDER") || !strings.Contains(out, "gemini") {
		t.Errorf("unexpected table %q", out)
	}
}

func TestCandidatesUnknownCategory(t *testing.T) {
	if _, err := run(t, "candidates", "POETRY"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}
