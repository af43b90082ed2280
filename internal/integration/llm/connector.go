package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/integration/common"
	pkghttp "github.com/futig/benchwatch/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Connector talks to a completion service over the shared HTTP client.
type Connector struct {
	config    config.LLMConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.LLMConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector("llm", cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Complete posts the prompt to the completion endpoint
func (c *Connector) Complete(ctx context.Context, req *entity.CompletionRequest) (string, error) {
	ctxzap.Debug(ctx, "requesting completion via LLM service", zap.String("purpose", string(req.Purpose)))

	body := &entity.LLMCompleteRequest{
		Purpose:     string(req.Purpose),
		System:      req.System,
		Prompt:      req.User,
		JSONOutput:  req.JSON,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens(req, c.config.MaxTokens),
	}

	var resp entity.LLMCompleteResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, c.config.CompleteEndpoint, body, &resp); err != nil {
		return "", fmt.Errorf("llm service completion failed: %w", err)
	}

	if resp.Result == "" {
		return "", fmt.Errorf("invalid completion response: empty or missing result field")
	}

	ctxzap.Debug(ctx, "completion received", zap.Int("result_length", len(resp.Result)))

	return resp.Result, nil
}
