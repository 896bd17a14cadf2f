package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/af-corp/taskrouter/internal/config"
	"github.com/af-corp/taskrouter/internal/types"
)

// GeminiExecutor serves Google Gemini models through the Gemini API backend.
type GeminiExecutor struct {
	name   string
	client *genai.Client
}

func NewGeminiExecutor(ctx context.Context, name string, cfg config.ProviderConfig, httpClient *http.Client) (*GeminiExecutor, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if len(cfg.Headers) > 0 {
		cc.HTTPOptions.Headers = http.Header{}
		for k, v := range cfg.Headers {
			if v != "" {
				cc.HTTPOptions.Headers.Set(k, v)
			}
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client for %s: %w", name, err)
	}
	return &GeminiExecutor{name: name, client: client}, nil
}

func (e *GeminiExecutor) Execute(ctx context.Context, p types.ProviderConfig, task types.Task) (*types.Completion, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(p.DefaultTemperature)),
		MaxOutputTokens: int32(maxTokens(p)),
	}
	if task.Constraints.RequiresStructuredOutput {
		gc.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := e.client.Models.GenerateContent(ctx, p.ModelID, genai.Text(task.Description), gc)
	if err != nil {
		return nil, wrap(e.name, geminiStatus(err), err)
	}

	text := resp.Text()
	if text == "" {
		return nil, wrap(e.name, 0, fmt.Errorf("no text content from model %s", p.ModelID))
	}

	c := &types.Completion{
		Content:   text,
		Model:     p.ModelID,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if resp.UsageMetadata != nil {
		c.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return c, nil
}

// geminiStatus extracts the HTTP status from a genai API error, which the SDK
// may return by value or by pointer.
func geminiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
