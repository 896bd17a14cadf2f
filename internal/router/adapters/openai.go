package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/af-corp/taskrouter/internal/config"
	"github.com/af-corp/taskrouter/internal/types"
)

// OpenAIExecutor serves OpenAI and any OpenAI-compatible endpoint
// (OpenRouter, Qwen, DeepSeek, xAI) selected by base URL.
type OpenAIExecutor struct {
	name   string
	client openai.Client
}

func NewOpenAIExecutor(name string, cfg config.ProviderConfig, httpClient *http.Client) *OpenAIExecutor {
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
	return &OpenAIExecutor{name: name, client: openai.NewClient(opts...)}
}

func (e *OpenAIExecutor) Execute(ctx context.Context, p types.ProviderConfig, task types.Task) (*types.Completion, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if task.Constraints.RequiresStructuredOutput {
		messages = append(messages, openai.SystemMessage(structuredOutputInstruction))
	}
	messages = append(messages, openai.UserMessage(task.Description))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.ModelID),
		Messages:    messages,
		MaxTokens:   openai.Int(maxTokens(p)),
		Temperature: openai.Float(p.DefaultTemperature),
	}
	if task.Constraints.RequiresStructuredOutput {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	start := time.Now()
	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, wrap(e.name, apiErr.StatusCode, err)
		}
		return nil, wrap(e.name, 0, err)
	}
	if len(resp.Choices) == 0 {
		return nil, wrap(e.name, 0, fmt.Errorf("empty response from model %s", p.ModelID))
	}

	return &types.Completion{
		Content:    resp.Choices[0].Message.Content,
		Model:      resp.Model,
		TokensUsed: int(resp.Usage.TotalTokens),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
