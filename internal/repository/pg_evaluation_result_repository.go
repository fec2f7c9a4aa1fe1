package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"action-critic/internal/model"
)

const (
	saveEvaluationResultQuery = `
		INSERT INTO evaluation_results (
			task_id, user_id, actions, degraded_count,
			processing_time_ms, error, created_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (task_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			actions = EXCLUDED.actions,
			degraded_count = EXCLUDED.degraded_count,
			processing_time_ms = EXCLUDED.processing_time_ms,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
	`
	getEvaluationResultByTaskIDQuery = `
		SELECT task_id, user_id, actions, degraded_count,
		       processing_time_ms, error, created_at, completed_at
		FROM evaluation_results
		WHERE task_id = $1
	`
)

type PgEvaluationResultRepository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewPgEvaluationResultRepository(pool *pgxpool.Pool, log zerolog.Logger) *PgEvaluationResultRepository {
	return &PgEvaluationResultRepository{
		pool: pool,
		log:  log.With().Str("component", "pg_evaluation_result_repo").Logger(),
	}
}

// evaluationResultRow mirrors the table; actions live in a JSONB column.
type evaluationResultRow struct {
	TaskID           string    `db:"task_id"`
	UserID           string    `db:"user_id"`
	Actions          []byte    `db:"actions"`
	DegradedCount    int       `db:"degraded_count"`
	ProcessingTimeMs int64     `db:"processing_time_ms"`
	Error            string    `db:"error"`
	CreatedAt        time.Time `db:"created_at"`
	CompletedAt      time.Time `db:"completed_at"`
}

func (r *PgEvaluationResultRepository) Save(ctx context.Context, result *model.EvaluationResult) error {
	actions, err := json.Marshal(result.Actions)
	if err != nil {
		return fmt.Errorf("marshal scored actions: %w", err)
	}

	tag, err := r.pool.Exec(ctx, saveEvaluationResultQuery,
		result.TaskID,
		result.UserID,
		actions,
		result.DegradedCount,
		result.ProcessingTimeMs,
		result.Error,
		result.CreatedAt,
		result.CompletedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("task_id", result.TaskID).Msg("failed to save evaluation result")
		return fmt.Errorf("save evaluation result %s: %w", result.TaskID, err)
	}
	r.log.Debug().Str("task_id", result.TaskID).Int64("rows", tag.RowsAffected()).Msg("evaluation result saved")
	return nil
}

func (r *PgEvaluationResultRepository) GetByTaskID(ctx context.Context, taskID string) (*model.EvaluationResult, error) {
	var row evaluationResultRow
	err := pgxscan.Get(ctx, r.pool, &row, getEvaluationResultByTaskIDQuery, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get evaluation result %s: %w", taskID, err)
	}

	result := &model.EvaluationResult{
		TaskID:           row.TaskID,
		UserID:           row.UserID,
		DegradedCount:    row.DegradedCount,
		ProcessingTimeMs: row.ProcessingTimeMs,
		Error:            row.Error,
		CreatedAt:        row.CreatedAt,
		CompletedAt:      row.CompletedAt,
	}
	if len(row.Actions) > 0 {
		if err := json.Unmarshal(row.Actions, &result.Actions); err != nil {
			return nil, fmt.Errorf("unmarshal scored actions for %s: %w", taskID, err)
		}
	}
	return result, nil
}

var _ EvaluationResultRepository = (*PgEvaluationResultRepository)(nil)
