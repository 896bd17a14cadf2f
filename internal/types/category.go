package types

import "strings"

// TaskCategory is the classification bucket used to select eligible providers.
type TaskCategory string

const (
	CategoryGeneral   TaskCategory = "GENERAL"
	CategoryCodegen   TaskCategory = "CODEGEN"
	CategoryReason    TaskCategory = "REASON"
	CategorySummarize TaskCategory = "SUMMARIZE"
	CategoryExtract   TaskCategory = "EXTRACT"
	CategoryCreative  TaskCategory = "CREATIVE"
)

// AllCategories lists the known categories in declaration order.
func AllCategories() []TaskCategory {
	return []TaskCategory{
		CategoryGeneral,
		CategoryCodegen,
		CategoryReason,
		CategorySummarize,
		CategoryExtract,
		CategoryCreative,
	}
}

func (c TaskCategory) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryCodegen, CategoryReason, CategorySummarize, CategoryExtract, CategoryCreative:
		return true
	default:
		return false
	}
}

// ParseCategory accepts a category name in any letter case.
func ParseCategory(s string) (TaskCategory, bool) {
	c := TaskCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", false
	}
	return c, true
}
