package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

var countPattern = regexp.MustCompile(`exactly (\d+)`)

// MockConnector answers every purpose with canned, well-formed output.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Complete(ctx context.Context, req *entity.CompletionRequest) (string, error) {
	ctxzap.Info(ctx, "[MOCK] completion", zap.String("purpose", string(req.Purpose)))

	switch req.Purpose {
	case entity.PurposeSynthesis:
		n := 3
		if m := countPattern.FindStringSubmatch(req.User); m != nil {
			n, _ = strconv.Atoi(m[1])
		}
		return mockQuestions(n), nil
	case entity.PurposePlanning:
		question := "What is this document about?"
		if _, after, ok := strings.Cut(req.User, "User question:\n"); ok {
			question, _, _ = strings.Cut(after, "\n")
		}
		b, _ := json.Marshal(map[string]any{
			"final_payload": map[string]any{"message": strings.TrimSpace(question)},
		})
		return string(b), nil
	case entity.PurposeHallucination, entity.PurposeHelpfulness:
		return `{"reasoning": "[MOCK] the answer matches the facts and addresses the question.", "score": 1}`, nil
	default:
		return "", fmt.Errorf("mock connector: unsupported purpose %q", req.Purpose)
	}
}

func mockQuestions(n int) string {
	difficulties := []entity.Difficulty{entity.DifficultyEasy, entity.DifficultyMedium, entity.DifficultyHard}

	type item struct {
		Question   string            `json:"question"`
		Answer     string            `json:"answer"`
		Difficulty entity.Difficulty `json:"difficulty"`
	}
	items := make([]item, n)
	for i := range items {
		items[i] = item{
			Question:   fmt.Sprintf("[MOCK] Question %d about the document?", i+1),
			Answer:     fmt.Sprintf("[MOCK] Answer %d taken from the document.", i+1),
			Difficulty: difficulties[i%len(difficulties)],
		}
	}

	b, _ := json.Marshal(map[string]any{"questions": items})
	return string(b)
}
