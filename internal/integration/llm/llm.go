package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	"go.uber.org/zap"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-sonnet-latest"
	defaultGeminiModel    = "gemini-2.0-flash"
)

// Completer is a single-shot text completion against a generative model.
type Completer interface {
	Complete(ctx context.Context, req *entity.CompletionRequest) (string, error)
}

// New returns the connector selected by cfg.Provider, bounded by cfg.CallTimeout.
func New(ctx context.Context, cfg config.LLMConfig, enableMocks bool, logger *zap.Logger) (Completer, error) {
	provider := cfg.Provider
	if enableMocks {
		provider = "mock"
	}

	var (
		c   Completer
		err error
	)
	switch provider {
	case "openai":
		c = NewOpenAIConnector(cfg, logger)
	case "anthropic":
		c = NewAnthropicConnector(cfg, logger)
	case "gemini":
		c, err = NewGeminiConnector(ctx, cfg, logger)
	case "http":
		c = NewConnector(cfg, logger)
	case "mock":
		c = NewMockConnector(logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("LLM connector initialized", zap.String("provider", provider), zap.String("model", cfg.Model))
	return WithTimeout(c, cfg.CallTimeout), nil
}

type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

// WithTimeout bounds every Complete call by d. A zero d disables the bound.
func WithTimeout(c Completer, d time.Duration) Completer {
	if d <= 0 {
		return c
	}
	return &timeoutCompleter{next: c, timeout: d}
}

func (t *timeoutCompleter) Complete(ctx context.Context, req *entity.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, req)
}

func maxTokens(req *entity.CompletionRequest, fallback int) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if fallback > 0 {
		return fallback
	}
	return 2048
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}

// Recorder observes collaborator calls.
type Recorder interface {
	LLMRequest(purpose string, err error, elapsed time.Duration)
}

type recordingCompleter struct {
	next     Completer
	recorder Recorder
}

// WithRecorder reports the outcome and latency of every call to rec.
func WithRecorder(c Completer, rec Recorder) Completer {
	return &recordingCompleter{next: c, recorder: rec}
}

func (r *recordingCompleter) Complete(ctx context.Context, req *entity.CompletionRequest) (string, error) {
	start := time.Now()
	out, err := r.next.Complete(ctx, req)
	r.recorder.LLMRequest(string(req.Purpose), err, time.Since(start))
	return out, err
}
