package repository

import (
	"strings"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type projectRow struct {
	ID                string
	OwnerID           string
	Name              string
	ContentType       string
	BaseURL           string
	Endpoint          string
	Method            string
	HeaderKeys        string
	HeaderValues      string
	BodyTemplate      string
	QuestionPath      string
	IsActive          bool
	TestIntervalHours int32
	KnowledgeBaseID   string
	RegisteredAt      pgtype.Timestamptz
	LastTestedAt      pgtype.Timestamptz
}

// toEntityProject normalizes the stored row; the body template is parsed
// into its tagged form here and nowhere else.
func toEntityProject(row *projectRow) *entity.Project {
	project := &entity.Project{
		ID:                row.ID,
		OwnerID:           row.OwnerID,
		Name:              row.Name,
		ContentType:       row.ContentType,
		BaseURL:           row.BaseURL,
		EndpointPath:      row.Endpoint,
		Method:            strings.ToUpper(strings.TrimSpace(row.Method)),
		HeaderKeys:        splitList(row.HeaderKeys),
		HeaderValues:      splitList(row.HeaderValues),
		BodyTemplate:      entity.ParseBodyTemplate(row.BodyTemplate),
		QuestionPath:      strings.TrimSpace(row.QuestionPath),
		IsActive:          row.IsActive,
		TestIntervalHours: int(row.TestIntervalHours),
		KnowledgeBaseID:   row.KnowledgeBaseID,
		RegisteredAt:      row.RegisteredAt.Time,
	}

	if project.Method == "" {
		project.Method = "POST"
	}
	if row.LastTestedAt.Valid {
		lastTested := row.LastTestedAt.Time
		project.LastTestedAt = &lastTested
	}

	return project
}

// splitList splits a comma separated column, keeping positions so keys
// and values stay aligned.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

type resultRow struct {
	ID                 pgtype.UUID
	ProjectID          string
	OwnerID            string
	Question           string
	ReferenceAnswer    string
	TargetAnswer       string
	HallucinationScore pgtype.Int2
	HelpfulnessScore   pgtype.Int2
	Passed             bool
	Outcome            string
	Difficulty         string
	CreatedAt          pgtype.Timestamptz
}

func toEntityResult(row *resultRow) *entity.TestResult {
	result := &entity.TestResult{
		ProjectID:       row.ProjectID,
		OwnerID:         row.OwnerID,
		Question:        row.Question,
		ReferenceAnswer: row.ReferenceAnswer,
		TargetAnswer:    row.TargetAnswer,
		Passed:          row.Passed,
		Outcome:         entity.Outcome(row.Outcome),
		Difficulty:      entity.Difficulty(row.Difficulty),
		CreatedAt:       row.CreatedAt.Time,
	}
	if row.ID.Valid {
		result.ID = uuid.UUID(row.ID.Bytes).String()
	}
	result.HallucinationScore = scorePtr(row.HallucinationScore)
	result.HelpfulnessScore = scorePtr(row.HelpfulnessScore)
	return result
}

func scorePtr(v pgtype.Int2) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int16)
	return &n
}

func toPgScore(v *int) pgtype.Int2 {
	if v == nil {
		return pgtype.Int2{}
	}
	return pgtype.Int2{Int16: int16(*v), Valid: true}
}
