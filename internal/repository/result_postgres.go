package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultRepository stores append-only test results.
type ResultRepository interface {
	SaveBatch(ctx context.Context, projectID string, results []*entity.TestResult, testedAt time.Time) error
	Count(ctx context.Context, projectID string) (int, error)
	List(ctx context.Context, projectID string, limit, offset int) ([]*entity.TestResult, error)
}

var _ ResultRepository = &ResultPostgres{}

type ResultPostgres struct {
	db *pgxpool.Pool
}

func NewResultPostgres(db *pgxpool.Pool) *ResultPostgres {
	return &ResultPostgres{
		db: db,
	}
}

const insertResultQuery = `
INSERT INTO test_results (
    id, project_id, owner_id, question, reference_answer, target_answer,
    hallucination_score, helpfulness_score, passed, outcome, difficulty, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// SaveBatch inserts results and advances the project's last tested time in
// one transaction. Either everything is stored or nothing is.
func (r *ResultPostgres) SaveBatch(ctx context.Context, projectID string, results []*entity.TestResult, testedAt time.Time) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, res := range results {
			if res.ID == "" {
				res.ID = uuid.NewString()
			}
			id, err := uuid.Parse(res.ID)
			if err != nil {
				return fmt.Errorf("parse result ID: %w", err)
			}
			batch.Queue(insertResultQuery,
				pgtype.UUID{Bytes: id, Valid: true},
				res.ProjectID,
				res.OwnerID,
				res.Question,
				res.ReferenceAnswer,
				res.TargetAnswer,
				toPgScore(res.HallucinationScore),
				toPgScore(res.HelpfulnessScore),
				res.Passed,
				string(res.Outcome),
				string(res.Difficulty),
				res.CreatedAt,
			)
		}

		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("insert results: %w", err)
			}
		}

		return touchLastTested(ctx, tx, projectID, testedAt)
	})
	if err != nil {
		return entity.NewPersistenceError(projectID, "save_results", err)
	}
	return nil
}

func (r *ResultPostgres) Count(ctx context.Context, projectID string) (int, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM test_results WHERE project_id = $1`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return int(n), nil
}

const listResultsQuery = `
SELECT id, project_id, owner_id, question, reference_answer, target_answer,
       hallucination_score, helpfulness_score, passed, outcome, difficulty, created_at
FROM test_results
WHERE project_id = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

// List returns results newest first. A non-positive limit returns all rows.
func (r *ResultPostgres) List(ctx context.Context, projectID string, limit, offset int) ([]*entity.TestResult, error) {
	var pgLimit pgtype.Int8
	if limit > 0 {
		pgLimit = pgtype.Int8{Int64: int64(limit), Valid: true}
	}

	rows, err := r.db.Query(ctx, listResultsQuery, projectID, pgLimit, offset)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := make([]*entity.TestResult, 0)
	for rows.Next() {
		var row resultRow
		if err := rows.Scan(
			&row.ID,
			&row.ProjectID,
			&row.OwnerID,
			&row.Question,
			&row.ReferenceAnswer,
			&row.TargetAnswer,
			&row.HallucinationScore,
			&row.HelpfulnessScore,
			&row.Passed,
			&row.Outcome,
			&row.Difficulty,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, toEntityResult(&row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return results, nil
}
