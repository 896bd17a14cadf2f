package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/af-corp/taskrouter/internal/config"
	"github.com/af-corp/taskrouter/internal/types"
)

const openAIOKBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "qwen-coder",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "func add(a, b int) int { return a + b }"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 20, "total_tokens": 32}
}`

func newOpenAITestExecutor(t *testing.T, handler http.HandlerFunc) *OpenAIExecutor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIExecutor("qwen", config.ProviderConfig{
		Type:    "openai",
		BaseURL: srv.URL + "/v1/",
		APIKey:  "test-key",
	}, srv.Client())
}

func codegenProvider() types.ProviderConfig {
	return types.ProviderConfig{
		ProviderID:         "qwen",
		Category:           types.CategoryCodegen,
		ModelID:            "qwen-coder",
		MaxTokens:          512,
		CostPer1kTokens:    0.14,
		DefaultTemperature: 0.2,
	}
}

func TestOpenAIExecutor_Success(t *testing.T) {
	var got map[string]any
	exec := newOpenAITestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(openAIOKBody))
	})

	c, err := exec.Execute(context.Background(), codegenProvider(), types.Task{Description: "write an add function"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Content != "func add(a, b int) int { return a + b }" {
		t.Errorf("unexpected content: %q", c.Content)
	}
	if c.TokensUsed != 32 {
		t.Errorf("expected 32 tokens, got %d", c.TokensUsed)
	}
	if got["model"] != "qwen-coder" {
		t.Errorf("expected model qwen-coder in request, got %v", got["model"])
	}
	if _, ok := got["response_format"]; ok {
		t.Error("did not expect response_format without structured output")
	}
}

func TestOpenAIExecutor_StructuredOutput(t *testing.T) {
	var got map[string]any
	exec := newOpenAITestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(openAIOKBody))
	})

	task := types.Task{
		Description: "extract fields",
		Constraints: types.Constraints{RequiresStructuredOutput: true},
	}
	if _, err := exec.Execute(context.Background(), codegenProvider(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rf, ok := got["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Errorf("expected json_object response_format, got %v", got["response_format"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Errorf("expected system and user messages, got %d", len(msgs))
	}
}

func TestOpenAIExecutor_StatusKinds(t *testing.T) {
	tests := []struct {
		status int
		want   FailureKind
	}{
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusBadRequest, KindInvalidRequest},
		{http.StatusInternalServerError, KindProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			exec := newOpenAITestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": {"message": "nope", "type": "error"}}`))
			})

			_, err := exec.Execute(context.Background(), codegenProvider(), types.Task{Description: "hi"})
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if perr.Kind != tt.want {
				t.Errorf("expected kind %s, got %s", tt.want, perr.Kind)
			}
			if perr.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, perr.Status)
			}
			if perr.Provider != "qwen" {
				t.Errorf("expected provider qwen, got %s", perr.Provider)
			}
		})
	}
}

func TestOpenAIExecutor_Timeout(t *testing.T) {
	exec := newOpenAITestExecutor(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := exec.Execute(ctx, codegenProvider(), types.Task{Description: "hi"})
	if KindOf(err) != KindTimeout {
		t.Errorf("expected timeout kind, got %s (%v)", KindOf(err), err)
	}
}
