package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectRepository reads projects registered by the external CRUD service.
type ProjectRepository interface {
	Get(ctx context.Context, id string) (*entity.Project, error)
	ListActiveSchedules(ctx context.Context) ([]entity.ProjectSchedule, error)
}

var _ ProjectRepository = &ProjectPostgres{}

type ProjectPostgres struct {
	db *pgxpool.Pool
}

func NewProjectPostgres(db *pgxpool.Pool) *ProjectPostgres {
	return &ProjectPostgres{
		db: db,
	}
}

const getProjectQuery = `
SELECT id, owner_id, name, content_type, base_url, endpoint, method,
       header_keys, header_values, body_template, question_path, is_active,
       test_interval_hours, knowledge_base_id, registered_at, last_tested_at
FROM projects
WHERE id = $1`

func (r *ProjectPostgres) Get(ctx context.Context, id string) (*entity.Project, error) {
	var row projectRow
	err := r.db.QueryRow(ctx, getProjectQuery, id).Scan(
		&row.ID,
		&row.OwnerID,
		&row.Name,
		&row.ContentType,
		&row.BaseURL,
		&row.Endpoint,
		&row.Method,
		&row.HeaderKeys,
		&row.HeaderValues,
		&row.BodyTemplate,
		&row.QuestionPath,
		&row.IsActive,
		&row.TestIntervalHours,
		&row.KnowledgeBaseID,
		&row.RegisteredAt,
		&row.LastTestedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	return toEntityProject(&row), nil
}

// A run that stored no rows still advances last_tested_at, so due-ness is
// the later of that stamp and the newest result.
const listActiveSchedulesQuery = `
SELECT p.id, p.owner_id, p.test_interval_hours, p.last_tested_at, MAX(r.created_at) AS last_result_at
FROM projects p
LEFT JOIN test_results r ON r.project_id = p.id
WHERE p.is_active
GROUP BY p.id, p.owner_id, p.test_interval_hours, p.last_tested_at
ORDER BY p.id`

func (r *ProjectPostgres) ListActiveSchedules(ctx context.Context) ([]entity.ProjectSchedule, error) {
	rows, err := r.db.Query(ctx, listActiveSchedulesQuery)
	if err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	defer rows.Close()

	var schedules []entity.ProjectSchedule
	for rows.Next() {
		var (
			s          entity.ProjectSchedule
			interval   int32
			lastTested pgtype.Timestamptz
			lastResult pgtype.Timestamptz
		)
		if err := rows.Scan(&s.ProjectID, &s.OwnerID, &interval, &lastTested, &lastResult); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		s.TestIntervalHours = int(interval)
		s.LastResultAt = latestTimestamp(lastTested, lastResult)
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}

	return schedules, nil
}

// latestTimestamp returns the later of the valid timestamps, or nil.
func latestTimestamp(ts ...pgtype.Timestamptz) *time.Time {
	var latest *time.Time
	for _, t := range ts {
		if !t.Valid {
			continue
		}
		if latest == nil || t.Time.After(*latest) {
			v := t.Time
			latest = &v
		}
	}
	return latest
}

const touchLastTestedQuery = `UPDATE projects SET last_tested_at = $2 WHERE id = $1`

func touchLastTested(ctx context.Context, tx pgx.Tx, projectID string, at time.Time) error {
	tag, err := tx.Exec(ctx, touchLastTestedQuery, projectID, at)
	if err != nil {
		return fmt.Errorf("update last tested: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrProjectNotFound
	}
	return nil
}
