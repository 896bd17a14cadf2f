package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/af-corp/taskrouter/internal/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		_, ok := types.ParseCategory(fl.Field().String())
		return ok
	})
	v.RegisterValidation("capability", func(fl validator.FieldLevel) bool {
		_, ok := types.ParseCapability(fl.Field().String())
		return ok
	})
	return v
}

// ValidationError lists every problem found in a configuration set.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks the gateway, provider and catalog files together. Every
// catalog entry must reference a configured provider endpoint.
func Validate(cfg *Config, providers *ProvidersConfig, catalog *CatalogConfig) error {
	var problems []string
	if cfg != nil {
		problems = append(problems, structProblems(cfg)...)
	}
	if providers != nil {
		problems = append(problems, structProblems(providers)...)
	}
	if catalog != nil {
		problems = append(problems, structProblems(catalog)...)
	}

	if providers != nil && catalog != nil {
		missing := make(map[string]bool)
		for _, entries := range catalog.Categories {
			for _, e := range entries {
				if e.Provider == "" {
					continue
				}
				if _, ok := providers.Providers[e.Provider]; !ok {
					missing[e.Provider] = true
				}
			}
		}
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			problems = append(problems, fmt.Sprintf("catalog provider %q has no entry in providers.yaml", name))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func structProblems(s any) []string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "ltefield":
		return fmt.Sprintf("%s must not exceed %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "category":
		return fmt.Sprintf("%s: unknown task category %q", field, fe.Value())
	case "capability":
		return fmt.Sprintf("%s: unknown capability %q", field, fe.Value())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s failed on '%s'", field, fe.Tag())
	}
}
