// Package planner fills a target's request-body template with a question.
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/pkg/jsonout"
	"github.com/futig/benchwatch/internal/prompts"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const finalPayloadKey = "final_payload"

type Completer interface {
	Complete(ctx context.Context, req *entity.CompletionRequest) (string, error)
}

type Planner struct {
	completer Completer
	prompt    *prompts.Template
}

func New(completer Completer, prompt *prompts.Template) *Planner {
	return &Planner{
		completer: completer,
		prompt:    prompt,
	}
}

// Plan returns the request body for question. With a non-empty path the
// question is written directly into the structured template; otherwise the
// collaborator infers where it belongs.
func (p *Planner) Plan(ctx context.Context, tmpl entity.BodyTemplate, question, path string) (any, error) {
	if path != "" {
		return Explicit(tmpl, question, path)
	}
	return p.infer(ctx, tmpl, question)
}

// Explicit writes question at path into a copy of tmpl.
func Explicit(tmpl entity.BodyTemplate, question, path string) (any, error) {
	if !tmpl.IsStructured() {
		return nil, entity.NewValidationError("body_template",
			fmt.Errorf("%w: template is not structured data", entity.ErrInvalidFormat))
	}
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return SetPath(tmpl.Value(), segs, question)
}

func (p *Planner) infer(ctx context.Context, tmpl entity.BodyTemplate, question string) (any, error) {
	system, user, err := p.prompt.Render(prompts.PlanningData{
		Template: tmpl.String(),
		Question: question,
	})
	if err != nil {
		return nil, entity.NewValidationError("prompt", err)
	}

	out, err := p.completer.Complete(ctx, &entity.CompletionRequest{
		Purpose: entity.PurposePlanning,
		System:  system,
		User:    user,
		JSON:    true,
	})
	if err != nil {
		return nil, entity.NewCollaboratorError(string(entity.PurposePlanning), err)
	}

	body, err := decodePlan(out)
	if err != nil {
		ctxzap.Warn(ctx, "unparsable payload plan", zap.Error(err), zap.Int("output_length", len(out)))
		return nil, entity.NewCollaboratorError(string(entity.PurposePlanning), err)
	}
	return body, nil
}

// decodePlan parses the collaborator output, unwrapping final_payload when
// present. The payload itself may arrive as a string in either dialect.
func decodePlan(out string) (any, error) {
	doc, err := parse(jsonout.Extract(out))
	if err != nil {
		return nil, err
	}

	m, ok := doc.(map[string]any)
	if !ok {
		return doc, nil
	}
	payload, ok := m[finalPayloadKey]
	if !ok {
		return doc, nil
	}

	switch v := payload.(type) {
	case map[string]any, []any:
		return v, nil
	case string:
		return parse(jsonout.Extract(v))
	case nil:
		return nil, fmt.Errorf("%w: %s is null", entity.ErrInvalidFormat, finalPayloadKey)
	default:
		return nil, fmt.Errorf("%w: %s has type %T", entity.ErrInvalidFormat, finalPayloadKey, v)
	}
}

func parse(s string) (any, error) {
	v, strictErr := entity.ParseStrict([]byte(s))
	if strictErr == nil {
		return v, nil
	}
	v, looseErr := entity.ParseLoose([]byte(s))
	if looseErr == nil {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %w", entity.ErrInvalidFormat, errors.Join(strictErr, looseErr))
}
