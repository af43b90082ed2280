// Package synth derives question/answer ground truth from document chunks.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/pkg/jsonout"
	"github.com/futig/benchwatch/internal/prompts"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

const synthesisTemperature = 0.7

const questionsSchema = `{
  "type": "object",
  "required": ["questions"],
  "properties": {
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "answer", "difficulty"],
        "properties": {
          "question": {"type": "string", "minLength": 1},
          "answer": {"type": "string", "minLength": 1},
          "difficulty": {"enum": ["easy", "medium", "hard"]}
        }
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("qa_questions.schema.json", questionsSchema)

type Completer interface {
	Complete(ctx context.Context, req *entity.CompletionRequest) (string, error)
}

type Generator struct {
	completer Completer
	prompt    *prompts.Template
	now       func() time.Time
}

func New(completer Completer, prompt *prompts.Template) *Generator {
	return &Generator{
		completer: completer,
		prompt:    prompt,
		now:       time.Now,
	}
}

type generated struct {
	Questions []struct {
		Question   string `json:"question"`
		Answer     string `json:"answer"`
		Difficulty string `json:"difficulty"`
	} `json:"questions"`
}

// Generate asks the collaborator for exactly n pairs grounded in text.
// It returns all n pairs or an error, never a partial set.
func (g *Generator) Generate(ctx context.Context, text string, n int) ([]entity.QAPair, error) {
	if n < 1 {
		return nil, entity.NewValidationError("count", entity.ErrInvalidParameter)
	}
	if strings.TrimSpace(text) == "" {
		return nil, entity.NewValidationError("context", entity.ErrMissingField)
	}

	system, user, err := g.prompt.Render(prompts.SynthesisData{Context: text, Count: n})
	if err != nil {
		return nil, entity.NewValidationError("prompt", err)
	}

	out, err := g.completer.Complete(ctx, &entity.CompletionRequest{
		Purpose:     entity.PurposeSynthesis,
		System:      system,
		User:        user,
		JSON:        true,
		Temperature: synthesisTemperature,
	})
	if err != nil {
		return nil, entity.NewCollaboratorError(string(entity.PurposeSynthesis), err)
	}

	pairs, err := g.parse(out, text)
	if err != nil {
		return nil, entity.NewCollaboratorError(string(entity.PurposeSynthesis), err)
	}
	if len(pairs) != n {
		return nil, entity.NewCollaboratorError(string(entity.PurposeSynthesis),
			fmt.Errorf("%w: got %d pairs, want %d", entity.ErrInvalidFormat, len(pairs), n))
	}

	ctxzap.Debug(ctx, "qa pairs synthesized", zap.Int("count", len(pairs)))
	return pairs, nil
}

func (g *Generator) parse(out, text string) ([]entity.QAPair, error) {
	var doc any
	if err := json.Unmarshal([]byte(jsonout.Extract(out)), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidFormat, err)
	}
	if list, ok := doc.([]any); ok {
		doc = map[string]any{"questions": list}
	}
	normalizeDifficulty(doc)

	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidFormat, err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var parsed generated
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidFormat, err)
	}

	now := g.now().UTC()
	pairs := make([]entity.QAPair, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		pairs = append(pairs, entity.QAPair{
			Question:    strings.TrimSpace(q.Question),
			Answer:      strings.TrimSpace(q.Answer),
			Context:     text,
			Difficulty:  entity.Difficulty(q.Difficulty),
			GeneratedAt: now,
		})
	}
	return pairs, nil
}

func normalizeDifficulty(doc any) {
	m, ok := doc.(map[string]any)
	if !ok {
		return
	}
	items, _ := m["questions"].([]any)
	for _, item := range items {
		q, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if d, ok := q["difficulty"].(string); ok {
			q["difficulty"] = strings.ToLower(strings.TrimSpace(d))
		}
	}
}
