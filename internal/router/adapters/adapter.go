package adapters

import (
	"context"

	"github.com/af-corp/taskrouter/internal/types"
)

// Executor runs a task against a single provider. One implementation exists
// per provider family; the router depends only on this interface.
//
// Implementations must stop when ctx is done and report failures as *Error
// so the failure kind survives into the router's aggregated error.
type Executor interface {
	Execute(ctx context.Context, provider types.ProviderConfig, task types.Task) (*types.Completion, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, provider types.ProviderConfig, task types.Task) (*types.Completion, error)

func (f ExecutorFunc) Execute(ctx context.Context, provider types.ProviderConfig, task types.Task) (*types.Completion, error) {
	return f(ctx, provider, task)
}

const structuredOutputInstruction = "Respond with a single valid JSON object and nothing else."

const defaultMaxTokens = 1024

func maxTokens(p types.ProviderConfig) int64 {
	if p.MaxTokens > 0 {
		return int64(p.MaxTokens)
	}
	return defaultMaxTokens
}
