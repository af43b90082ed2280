package llm

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type GeminiConnector struct {
	client    *genai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

func NewGeminiConnector(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiConnector, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiConnector{
		client:    client,
		model:     modelOr(cfg.Model, defaultGeminiModel),
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}, nil
}

func (c *GeminiConnector) Complete(ctx context.Context, req *entity.CompletionRequest) (string, error) {
	temperature := req.Temperature
	genCfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(min(maxTokens(req, c.maxTokens), math.MaxInt32)),
	}
	if req.System != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: req.System},
			},
		}
	}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.User), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini generate content: empty response")
	}

	ctxzap.Debug(ctx, "gemini completion received", zap.String("purpose", string(req.Purpose)))

	return text, nil
}
