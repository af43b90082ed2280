package repository

import (
	"reflect"
	"testing"
	"time"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func TestToEntityProject(t *testing.T) {
	registered := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	row := &projectRow{
		ID:                "p1",
		OwnerID:           "u1",
		Name:              "support bot",
		ContentType:       "application/json",
		BaseURL:           "https://bot.example.com",
		Endpoint:          "/chat",
		Method:            " post ",
		HeaderKeys:        "Authorization, X-Team",
		HeaderValues:      "Bearer abc, ,",
		BodyTemplate:      "{'message': '', 'stream': False}",
		QuestionPath:      " message ",
		IsActive:          true,
		TestIntervalHours: 6,
		RegisteredAt:      pgtype.Timestamptz{Time: registered, Valid: true},
	}

	p := toEntityProject(row)

	if p.Method != "POST" || p.QuestionPath != "message" || p.TestIntervalHours != 6 {
		t.Errorf("unexpected project %+v", p)
	}
	if !p.BodyTemplate.IsStructured() {
		t.Fatal("loose template was not normalized to structured")
	}
	if got := p.BodyTemplate.String(); got != `{"message":"","stream":false}` {
		t.Errorf("template = %s", got)
	}
	if p.LastTestedAt != nil {
		t.Errorf("LastTestedAt = %v, want nil", p.LastTestedAt)
	}
	want := map[string]string{
		"Authorization": "Bearer abc",
		"X-Team":        "",
		"Content-Type":  "application/json",
	}
	if got := p.Headers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Headers() = %v, want %v", got, want)
	}
}

func TestToEntityProjectDefaults(t *testing.T) {
	last := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	p := toEntityProject(&projectRow{
		BodyTemplate: "question={q}",
		LastTestedAt: pgtype.Timestamptz{Time: last, Valid: true},
	})

	if p.Method != "POST" {
		t.Errorf("Method = %q, want POST", p.Method)
	}
	if p.BodyTemplate.Kind() != entity.TemplateRaw {
		t.Errorf("template kind = %v, want raw", p.BodyTemplate.Kind())
	}
	if p.LastTestedAt == nil || !p.LastTestedAt.Equal(last) {
		t.Errorf("LastTestedAt = %v", p.LastTestedAt)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "  ", want: nil},
		{in: "a", want: []string{"a"}},
		{in: "a, b ,c", want: []string{"a", "b", "c"}},
		{in: "a,,c", want: []string{"a", "", "c"}},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToEntityResult(t *testing.T) {
	id := uuid.New()
	res := toEntityResult(&resultRow{
		ID:                 pgtype.UUID{Bytes: id, Valid: true},
		ProjectID:          "p1",
		HallucinationScore: pgtype.Int2{Int16: 1, Valid: true},
		Outcome:            "judge_error",
		Difficulty:         "hard",
	})

	if res.ID != id.String() {
		t.Errorf("ID = %q, want %q", res.ID, id)
	}
	if res.HallucinationScore == nil || *res.HallucinationScore != 1 {
		t.Errorf("HallucinationScore = %v", res.HallucinationScore)
	}
	if res.HelpfulnessScore != nil {
		t.Errorf("HelpfulnessScore = %v, want nil", res.HelpfulnessScore)
	}
	if res.Outcome != entity.OutcomeJudgeError || res.Difficulty != entity.DifficultyHard {
		t.Errorf("unexpected result %+v", res)
	}

	one := 1
	if got := toPgScore(&one); !got.Valid || got.Int16 != 1 {
		t.Errorf("toPgScore(1) = %+v", got)
	}
	if got := toPgScore(nil); got.Valid {
		t.Errorf("toPgScore(nil) = %+v", got)
	}
}
