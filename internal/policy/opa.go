// Package policy evaluates an optional OPA veto over routing candidates.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/rego"

	"github.com/af-corp/taskrouter/internal/config"
	"github.com/af-corp/taskrouter/internal/types"
)

const query = "[data.taskrouter.policy.allow, data.taskrouter.policy.reason]"

// Input is the document a policy sees for one candidate.
type Input struct {
	Task     TaskInput     `json:"task"`
	Provider ProviderInput `json:"provider"`
	Time     TimeInput     `json:"time"`
}

type TaskInput struct {
	Category                 string `json:"category"`
	Tenant                   string `json:"tenant"`
	RequiresVision           bool   `json:"requires_vision"`
	RequiresStructuredOutput bool   `json:"requires_structured_output"`
}

type ProviderInput struct {
	ID              string   `json:"id"`
	Model           string   `json:"model"`
	CostPer1kTokens float64  `json:"cost_per_1k_tokens"`
	Capabilities    []string `json:"capabilities"`
}

type TimeInput struct {
	Hour int    `json:"hour"`
	Day  string `json:"day"`
}

// Evaluator vetoes candidates with compiled Rego policies. It satisfies the
// router's CandidateFilter.
type Evaluator struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	cfg      func() config.PolicyConfig
	now      func() time.Time
}

// NewEvaluator creates a policy evaluator. Call Load() to compile policies.
func NewEvaluator(cfg func() config.PolicyConfig) *Evaluator {
	return &Evaluator{cfg: cfg, now: time.Now}
}

func (e *Evaluator) Enabled() bool { return e.cfg().Enabled }

// Load compiles Rego modules from the bundle path.
func (e *Evaluator) Load() error {
	cfg := e.cfg()
	modules, err := ReadBundle(cfg.BundlePath)
	if err != nil {
		return err
	}
	if len(modules) == 0 {
		slog.Warn("no rego files found", "path", cfg.BundlePath)
		return nil
	}
	if err := e.compile(modules); err != nil {
		return err
	}
	slog.Info("opa policies loaded", "modules", len(modules), "path", cfg.BundlePath)
	return nil
}

// LoadFromModules compiles policies from module sources keyed by file name.
func (e *Evaluator) LoadFromModules(modules map[string]string) error {
	return e.compile(sortedModules(modules))
}

func (e *Evaluator) compile(modules []Module) error {
	opts := []func(*rego.Rego){rego.Query(query)}
	for _, m := range modules {
		opts = append(opts, rego.Module(m.Name, m.Source))
	}

	prepared, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	e.mu.Lock()
	e.prepared = &prepared
	e.mu.Unlock()
	return nil
}

// Evaluate runs the policy against the given input.
func (e *Evaluator) Evaluate(ctx context.Context, input Input) (bool, string, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		// No policies loaded, fail closed
		return false, "no policies loaded", nil
	}

	timeout := e.cfg().EvaluationTimeout
	if timeout == 0 {
		timeout = 100 * time.Millisecond
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Sprintf("policy evaluation error: %v", err), err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "no policy result", nil
	}

	// Result is [allow, reason]
	arr, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok || len(arr) < 2 {
		return false, "unexpected policy result format", nil
	}
	allowed, _ := arr[0].(bool)
	reason, _ := arr[1].(string)
	return allowed, reason, nil
}

// Allow decides whether provider p may serve task. A disabled evaluator
// allows everything.
func (e *Evaluator) Allow(ctx context.Context, task types.Task, category types.TaskCategory, p types.ProviderConfig) (bool, string, error) {
	if !e.Enabled() {
		return true, "", nil
	}
	return e.Evaluate(ctx, NewInput(task, category, p, e.now()))
}

// NewInput builds the policy document for one candidate.
func NewInput(task types.Task, category types.TaskCategory, p types.ProviderConfig, now time.Time) Input {
	caps := make([]string, len(p.Capabilities))
	for i, c := range p.Capabilities {
		caps[i] = string(c)
	}
	now = now.UTC()
	return Input{
		Task: TaskInput{
			Category:                 string(category),
			Tenant:                   task.Tenant,
			RequiresVision:           task.Constraints.RequiresVision,
			RequiresStructuredOutput: task.Constraints.RequiresStructuredOutput,
		},
		Provider: ProviderInput{
			ID:              p.ProviderID,
			Model:           p.ModelID,
			CostPer1kTokens: p.CostPer1kTokens,
			Capabilities:    caps,
		},
		Time: TimeInput{
			Hour: now.Hour(),
			Day:  now.Weekday().String(),
		},
	}
}
