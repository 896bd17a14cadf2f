package adapters

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/af-corp/taskrouter/internal/config"
	"github.com/af-corp/taskrouter/internal/types"
)

// Dispatcher is an Executor that forwards each call to the executor
// registered for the provider id.
type Dispatcher struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{executors: make(map[string]Executor)}
}

func (d *Dispatcher) Register(providerID string, e Executor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executors[providerID] = e
}

func (d *Dispatcher) Get(providerID string) (Executor, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.executors[providerID]
	return e, ok
}

// Providers returns the registered provider ids, sorted.
func (d *Dispatcher) Providers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.executors))
	for id := range d.executors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Replace swaps in the executors of other, used after a config reload.
func (d *Dispatcher) Replace(other *Dispatcher) {
	other.mu.RLock()
	next := make(map[string]Executor, len(other.executors))
	for id, e := range other.executors {
		next[id] = e
	}
	other.mu.RUnlock()

	d.mu.Lock()
	d.executors = next
	d.mu.Unlock()
}

func (d *Dispatcher) Execute(ctx context.Context, p types.ProviderConfig, task types.Task) (*types.Completion, error) {
	e, ok := d.Get(p.ProviderID)
	if !ok {
		return nil, &Error{Kind: KindProviderUnavailable, Provider: p.ProviderID, Err: ErrUnknownProvider}
	}
	return e.Execute(ctx, p, task)
}

// BuildFromConfig builds one executor per configured provider endpoint.
func BuildFromConfig(ctx context.Context, provCfg *config.ProvidersConfig) (*Dispatcher, error) {
	d := NewDispatcher()
	for name, cfg := range provCfg.Providers {
		client := &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}

		var e Executor
		switch cfg.Type {
		case "openai":
			e = NewOpenAIExecutor(name, cfg, client)
		case "anthropic":
			e = NewAnthropicExecutor(name, cfg, client)
		case "gemini":
			g, err := NewGeminiExecutor(ctx, name, cfg, client)
			if err != nil {
				return nil, err
			}
			e = g
		case "mock":
			e = NewMockExecutor(name)
		default:
			return nil, fmt.Errorf("provider %s: unsupported type %q", name, cfg.Type)
		}
		d.Register(name, e)
	}
	return d, nil
}
