// Package judge scores target answers for hallucination and helpfulness.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/pkg/jsonout"
	"github.com/futig/benchwatch/internal/prompts"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var scorePattern = regexp.MustCompile(`(?i)"?score"?\s*[:=]\s*"?([0-9]+)`)

type Completer interface {
	Complete(ctx context.Context, req *entity.CompletionRequest) (string, error)
}

type Judge struct {
	completer     Completer
	hallucination *prompts.Template
	helpfulness   *prompts.Template
}

func New(completer Completer, set *prompts.Set) *Judge {
	return &Judge{
		completer:     completer,
		hallucination: set.Hallucination,
		helpfulness:   set.Helpfulness,
	}
}

// Evaluate runs both judge calls concurrently. A failure of one call is
// recorded in the verdict and does not cancel the other.
func (j *Judge) Evaluate(ctx context.Context, question, reference, answer string) entity.Verdict {
	data := prompts.JudgeData{
		Question:  question,
		Reference: reference,
		Answer:    answer,
	}

	var v entity.Verdict
	var g errgroup.Group
	g.Go(func() error {
		v.Hallucination, v.HallucinationErr = j.score(ctx, entity.PurposeHallucination, j.hallucination, data)
		return nil
	})
	g.Go(func() error {
		v.Helpfulness, v.HelpfulnessErr = j.score(ctx, entity.PurposeHelpfulness, j.helpfulness, data)
		return nil
	})
	_ = g.Wait()

	return v
}

func (j *Judge) score(ctx context.Context, purpose entity.Purpose, tmpl *prompts.Template, data prompts.JudgeData) (*int, error) {
	system, user, err := tmpl.Render(data)
	if err != nil {
		return nil, entity.NewValidationError("prompt", err)
	}

	out, err := j.completer.Complete(ctx, &entity.CompletionRequest{
		Purpose: purpose,
		System:  system,
		User:    user,
		JSON:    true,
	})
	if err != nil {
		ctxzap.Warn(ctx, "judge call failed", zap.String("purpose", string(purpose)), zap.Error(err))
		return nil, entity.NewCollaboratorError(string(purpose), err)
	}

	score, err := ParseScore(out)
	if err != nil {
		ctxzap.Warn(ctx, "judge output rejected", zap.String("purpose", string(purpose)), zap.Error(err))
		return nil, entity.NewCollaboratorError(string(purpose), err)
	}
	return &score, nil
}

type grade struct {
	Reasoning string          `json:"reasoning"`
	Score     json.RawMessage `json:"score"`
}

// ParseScore reads a binary score from judge output. Structured output is
// preferred; a "score: N" mention is accepted as a fallback.
func ParseScore(out string) (int, error) {
	var g grade
	if err := json.Unmarshal([]byte(jsonout.Extract(out)), &g); err == nil && len(g.Score) > 0 {
		return binary(string(g.Score))
	}

	m := scorePattern.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("%w: no score in judge output", entity.ErrInvalidFormat)
	}
	return binary(m[1])
}

func binary(raw string) (int, error) {
	raw = trimQuotes(raw)
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: score %q", entity.ErrInvalidFormat, raw)
	}
	switch n {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: score %v is not binary", entity.ErrInvalidFormat, n)
	}
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
