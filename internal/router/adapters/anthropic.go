package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/af-corp/taskrouter/internal/config"
	"github.com/af-corp/taskrouter/internal/types"
)

// AnthropicExecutor serves the Anthropic Messages API.
type AnthropicExecutor struct {
	name   string
	client anthropic.Client
}

func NewAnthropicExecutor(name string, cfg config.ProviderConfig, httpClient *http.Client) *AnthropicExecutor {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	for k, v := range cfg.Headers {
		if v != "" {
			opts = append(opts, option.WithHeader(k, v))
		}
	}
	return &AnthropicExecutor{name: name, client: anthropic.NewClient(opts...)}
}

func (e *AnthropicExecutor) Execute(ctx context.Context, p types.ProviderConfig, task types.Task) (*types.Completion, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.ModelID),
		MaxTokens: maxTokens(p),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(task.Description)),
		},
		Temperature: anthropic.Float(p.DefaultTemperature),
	}
	if task.Constraints.RequiresStructuredOutput {
		params.System = []anthropic.TextBlockParam{{Text: structuredOutputInstruction}}
	}

	start := time.Now()
	resp, err := e.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, wrap(e.name, apiErr.StatusCode, err)
		}
		return nil, wrap(e.name, 0, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, wrap(e.name, 0, fmt.Errorf("no text content from model %s", p.ModelID))
	}

	return &types.Completion{
		Content:    sb.String(),
		Model:      string(resp.Model),
		TokensUsed: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
