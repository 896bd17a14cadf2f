package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/af-corp/taskrouter/internal/types"
)

// MockExecutor returns deterministic completions for local runs.
type MockExecutor struct {
	name   string
	prefix string
}

func NewMockExecutor(name string) *MockExecutor {
	return &MockExecutor{name: name, prefix: "mock response:"}
}

func (e *MockExecutor) Execute(ctx context.Context, p types.ProviderConfig, task types.Task) (*types.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap(e.name, 0, err)
	}
	content := fmt.Sprintf("%s %s", e.prefix, task.Description)
	if task.Constraints.RequiresStructuredOutput {
		content = fmt.Sprintf(`{"provider":%q,"echo":%q}`, e.name, task.Description)
	}
	return &types.Completion{
		Content:    content,
		Model:      p.ModelID,
		TokensUsed: len(strings.Fields(task.Description)) + len(strings.Fields(content)),
	}, nil
}
