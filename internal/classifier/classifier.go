// Package classifier maps a task description to a task category using a
// deterministic keyword table.
package classifier

import (
	"sort"
	"strings"

	"github.com/af-corp/taskrouter/internal/types"
)

// Classifier is immutable after New and safe for concurrent use.
type Classifier struct {
	rules []rule
	def   types.TaskCategory
}

type rule struct {
	category types.TaskCategory
	keywords []string
}

// Decision explains how a category was chosen.
type Decision struct {
	Category types.TaskCategory
	Explicit bool
	Scores   map[types.TaskCategory]int
	Matched  []string
}

// New builds a classifier from a category to keyword table. A nil or empty
// table uses DefaultKeywords. An invalid default falls back to GENERAL.
func New(table map[types.TaskCategory][]string, def types.TaskCategory) *Classifier {
	if len(table) == 0 {
		table = DefaultKeywords()
	}
	if !def.Valid() {
		def = types.CategoryGeneral
	}

	c := &Classifier{def: def}
	for cat, words := range table {
		seen := make(map[string]bool)
		r := rule{category: cat}
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" || seen[w] {
				continue
			}
			seen[w] = true
			r.keywords = append(r.keywords, w)
		}
		sort.Strings(r.keywords)
		c.rules = append(c.rules, r)
	}
	sort.Slice(c.rules, func(i, j int) bool {
		return c.rules[i].category < c.rules[j].category
	})
	return c
}

// Default returns the category used for ties and unmatched descriptions.
func (c *Classifier) Default() types.TaskCategory {
	return c.def
}

// Classify returns the task's category. An explicit category always wins.
func (c *Classifier) Classify(task types.Task) types.TaskCategory {
	return c.Explain(task).Category
}

// Explain scores the description against every category. The category with
// the most distinct keyword matches wins; no match or a shared top score
// yields the default category.
func (c *Classifier) Explain(task types.Task) Decision {
	if task.ExplicitCategory != "" {
		return Decision{Category: task.ExplicitCategory, Explicit: true}
	}

	desc := strings.ToLower(task.Description)
	d := Decision{Scores: make(map[types.TaskCategory]int)}
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if containsKeyword(desc, kw) {
				d.Scores[r.category]++
				d.Matched = append(d.Matched, kw)
			}
		}
	}

	best, bestScore, tied := c.def, 0, false
	for _, r := range c.rules {
		score := d.Scores[r.category]
		switch {
		case score > bestScore:
			best, bestScore, tied = r.category, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if bestScore == 0 || tied {
		best = c.def
	}
	d.Category = best
	return d
}

// containsKeyword reports whether kw occurs in s on word boundaries.
func containsKeyword(s, kw string) bool {
	for offset := 0; offset < len(s); {
		idx := strings.Index(s[offset:], kw)
		if idx == -1 {
			return false
		}
		start := offset + idx
		end := start + len(kw)
		if (start == 0 || !isWordChar(s[start-1])) && (end == len(s) || !isWordChar(s[end])) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
