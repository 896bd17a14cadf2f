package classifier

import "github.com/af-corp/taskrouter/internal/types"

// DefaultKeywords is the built-in category table used when the catalog
// config does not supply one.
func DefaultKeywords() map[types.TaskCategory][]string {
	return map[types.TaskCategory][]string{
		types.CategoryCodegen: {
			"code", "function", "implement", "refactor", "debug", "bug", "compile",
			"unit test", "stack trace", "golang", "python", "typescript", "javascript",
			"sql", "regex", "api endpoint", "script", "class", "method",
		},
		types.CategoryReason: {
			"why", "prove", "proof", "reason", "analyze", "analyse", "explain",
			"step by step", "compare", "trade-off", "tradeoff", "evaluate", "logic",
			"math", "calculate", "derive",
		},
		types.CategorySummarize: {
			"summarize", "summarise", "summary", "tl;dr", "tldr", "condense",
			"key points", "recap", "shorten", "abstract",
		},
		types.CategoryExtract: {
			"extract", "parse", "json", "fields", "table", "structured",
			"entities", "classify", "label", "schema",
		},
		types.CategoryCreative: {
			"story", "poem", "lyrics", "creative", "slogan", "tagline", "brainstorm",
			"fiction", "character", "marketing copy",
		},
	}
}
