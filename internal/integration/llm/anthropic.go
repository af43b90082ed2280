package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type AnthropicConnector struct {
	client    anthropic.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

func NewAnthropicConnector(cfg config.LLMConfig, logger *zap.Logger) *AnthropicConnector {
	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicConnector{
		client:    anthropic.NewClient(options...),
		model:     modelOr(cfg.Model, defaultAnthropicModel),
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

func (c *AnthropicConnector) Complete(ctx context.Context, req *entity.CompletionRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens(req, c.maxTokens)),
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.System,
			},
		}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic messages: no text content returned")
	}

	ctxzap.Debug(ctx, "anthropic completion received",
		zap.String("purpose", string(req.Purpose)),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	return sb.String(), nil
}
