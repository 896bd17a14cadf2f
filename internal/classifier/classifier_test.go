package classifier

import (
	"testing"

	"github.com/af-corp/taskrouter/internal/types"
)

func TestClassify_KeywordScoring(t *testing.T) {
	c := New(nil, types.CategoryGeneral)

	tests := []struct {
		desc string
		want types.TaskCategory
	}{
		{"Implement a function in golang that parses dates", types.CategoryCodegen},
		{"Please summarize this article into key points", types.CategorySummarize},
		{"Explain step by step why the proof holds", types.CategoryReason},
		{"Write a poem about the sea", types.CategoryCreative},
		{"Extract the entities as json", types.CategoryExtract},
		{"hello there", types.CategoryGeneral},
		{"", types.CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := c.Classify(types.Task{Description: tt.desc}); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.desc, got, tt.want)
			}
		})
	}
}

func TestClassify_ExplicitCategoryWins(t *testing.T) {
	c := New(nil, types.CategoryGeneral)
	task := types.Task{
		Description:      "implement a function, debug the code, refactor the class, fix the bug",
		ExplicitCategory: types.CategoryCreative,
	}

	d := c.Explain(task)
	if d.Category != types.CategoryCreative {
		t.Errorf("expected CREATIVE, got %s", d.Category)
	}
	if !d.Explicit {
		t.Error("expected decision to be marked explicit")
	}
	if len(d.Scores) != 0 {
		t.Errorf("expected no keyword scoring for explicit category, got %v", d.Scores)
	}
}

func TestClassify_TieGoesToDefault(t *testing.T) {
	table := map[types.TaskCategory][]string{
		types.CategoryCodegen: {"alpha"},
		types.CategoryReason:  {"beta"},
	}

	c := New(table, types.CategoryGeneral)
	if got := c.Classify(types.Task{Description: "alpha and beta"}); got != types.CategoryGeneral {
		t.Errorf("expected GENERAL on tie, got %s", got)
	}

	c = New(table, types.CategorySummarize)
	if got := c.Classify(types.Task{Description: "alpha and beta"}); got != types.CategorySummarize {
		t.Errorf("expected configured default SUMMARIZE on tie, got %s", got)
	}
	if got := c.Classify(types.Task{Description: "alpha alpha beta"}); got != types.CategorySummarize {
		t.Errorf("repeated keyword should count once, got %s", got)
	}
}

func TestClassify_WordBoundaries(t *testing.T) {
	table := map[types.TaskCategory][]string{
		types.CategoryCodegen: {"code"},
	}
	c := New(table, types.CategoryGeneral)

	tests := []struct {
		desc string
		want types.TaskCategory
	}{
		{"write some code", types.CategoryCodegen},
		{"CODE review", types.CategoryCodegen},
		{"decode this barcode", types.CategoryGeneral},
		{"codes", types.CategoryGeneral},
		{"barcode then code.", types.CategoryCodegen},
	}
	for _, tt := range tests {
		if got := c.Classify(types.Task{Description: tt.desc}); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.desc, got, tt.want)
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := New(nil, types.CategoryGeneral)
	task := types.Task{Description: "analyze and compare the two sql query plans"}

	first := c.Classify(task)
	for i := 0; i < 10; i++ {
		if got := c.Classify(task); got != first {
			t.Fatalf("classification changed between calls: %s then %s", first, got)
		}
	}
}

func TestNew_InvalidDefault(t *testing.T) {
	c := New(nil, types.TaskCategory("BOGUS"))
	if c.Default() != types.CategoryGeneral {
		t.Errorf("expected GENERAL fallback, got %s", c.Default())
	}
}

func TestExplain_Matched(t *testing.T) {
	c := New(map[types.TaskCategory][]string{
		types.CategorySummarize: {"Summary", "  recap ", "summary"},
	}, types.CategoryGeneral)

	d := c.Explain(types.Task{Description: "a quick recap and summary"})
	if d.Category != types.CategorySummarize {
		t.Fatalf("expected SUMMARIZE, got %s", d.Category)
	}
	if d.Scores[types.CategorySummarize] != 2 {
		t.Errorf("expected score 2, got %d", d.Scores[types.CategorySummarize])
	}
	if len(d.Matched) != 2 {
		t.Errorf("expected 2 matched keywords, got %v", d.Matched)
	}
}
