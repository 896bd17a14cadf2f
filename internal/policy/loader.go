package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Module is one Rego source file of a policy bundle.
type Module struct {
	Name   string
	Source string
}

// ReadBundle reads the policy modules in dir, sorted by file name. Rego unit
// tests (*_test.rego) and subdirectories are skipped.
func ReadBundle(dir string) ([]Module, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read policy bundle %s: %w", dir, err)
	}

	var out []Module
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".rego" || strings.HasSuffix(name, "_test.rego") {
			continue
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read policy %s: %w", path, err)
		}
		out = append(out, Module{Name: name, Source: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// sortedModules orders a name to source map the way ReadBundle does.
func sortedModules(src map[string]string) []Module {
	out := make([]Module, 0, len(src))
	for name, s := range src {
		out = append(out, Module{Name: name, Source: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
