package judge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/prompts"
)

// scriptedCompleter answers per purpose.
type scriptedCompleter struct {
	mu      sync.Mutex
	outputs map[entity.Purpose]string
	errs    map[entity.Purpose]error
	seen    []entity.Purpose
	wait    chan struct{}
}

func (s *scriptedCompleter) Complete(ctx context.Context, req *entity.CompletionRequest) (string, error) {
	s.mu.Lock()
	s.seen = append(s.seen, req.Purpose)
	s.mu.Unlock()

	if s.wait != nil {
		select {
		case <-s.wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.outputs[req.Purpose], s.errs[req.Purpose]
}

func reply(score string) string {
	return `{"reasoning": "step by step", "score": ` + score + `}`
}

func TestEvaluatePassTable(t *testing.T) {
	tests := []struct {
		hallucination string
		helpfulness   string
		wantPassed    bool
	}{
		{"1", "1", true},
		{"1", "0", false},
		{"0", "1", false},
		{"0", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.hallucination+tt.helpfulness, func(t *testing.T) {
			c := &scriptedCompleter{outputs: map[entity.Purpose]string{
				entity.PurposeHallucination: reply(tt.hallucination),
				entity.PurposeHelpfulness:   reply(tt.helpfulness),
			}}
			v := New(c, prompts.Default()).Evaluate(context.Background(), "q", "ref", "ans")

			if !v.Complete() {
				t.Fatalf("verdict incomplete: %+v", v)
			}
			if v.Passed() != tt.wantPassed {
				t.Errorf("Passed() = %v, want %v", v.Passed(), tt.wantPassed)
			}
			if len(c.seen) != 2 {
				t.Errorf("calls = %d, want 2", len(c.seen))
			}
		})
	}
}

func TestEvaluateOneCallFails(t *testing.T) {
	c := &scriptedCompleter{
		outputs: map[entity.Purpose]string{entity.PurposeHelpfulness: reply("1")},
		errs:    map[entity.Purpose]error{entity.PurposeHallucination: errors.New("rate limited")},
	}
	v := New(c, prompts.Default()).Evaluate(context.Background(), "q", "ref", "ans")

	if v.Hallucination != nil || entity.KindOf(v.HallucinationErr) != entity.KindCollaborator {
		t.Errorf("hallucination = %v, err = %v", v.Hallucination, v.HallucinationErr)
	}
	if v.Helpfulness == nil || *v.Helpfulness != 1 || v.HelpfulnessErr != nil {
		t.Errorf("helpfulness = %v, err = %v", v.Helpfulness, v.HelpfulnessErr)
	}
	if v.Outcome() != entity.OutcomeJudgeError {
		t.Errorf("Outcome() = %v", v.Outcome())
	}
}

func TestEvaluateRunsConcurrently(t *testing.T) {
	c := &scriptedCompleter{
		outputs: map[entity.Purpose]string{
			entity.PurposeHallucination: reply("1"),
			entity.PurposeHelpfulness:   reply("1"),
		},
		wait: make(chan struct{}),
	}

	done := make(chan entity.Verdict)
	go func() {
		done <- New(c, prompts.Default()).Evaluate(context.Background(), "q", "ref", "ans")
	}()

	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		n := len(c.seen)
		c.mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("judge calls were not in flight together")
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(c.wait)

	if v := <-done; !v.Passed() {
		t.Errorf("verdict = %+v", v)
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    int
		wantErr bool
	}{
		{name: "json", out: reply("1"), want: 1},
		{name: "json zero", out: reply("0"), want: 0},
		{name: "string score", out: `{"score": "1"}`, want: 1},
		{name: "float score", out: `{"score": 1.0}`, want: 1},
		{name: "fenced", out: "```json\n" + reply("0") + "\n```", want: 0},
		{name: "prose fallback", out: "The answer is grounded.\nScore: 1", want: 1},
		{name: "out of range", out: reply("5"), wantErr: true},
		{name: "missing", out: `{"reasoning": "no idea"}`, wantErr: true},
		{name: "garbage", out: "cannot grade", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScore(tt.out)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScore() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseScore() = %d, want %d", got, tt.want)
			}
		})
	}
}
