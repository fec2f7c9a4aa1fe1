//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"action-critic/internal/model"
	"action-critic/internal/repository"
	"action-critic/migrations"
	"action-critic/pkg/migration"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("action_critic_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, pool)
	require.NoError(t, migrator.Up(ctx))

	return pool
}

func TestPgEvaluationResultRepository_SaveAndGet(t *testing.T) {
	pool := setupPostgres(t)
	repo := repository.NewPgEvaluationResultRepository(pool, zerolog.Nop())
	ctx := context.Background()

	taskID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	result := &model.EvaluationResult{
		TaskID: taskID,
		UserID: "user-1",
		Actions: []model.ScoredAction{{
			Action:     model.Action{OriginalIndex: 0, ActionText: "Pick lock", Skill: "Lockpicking"},
			SkillScore: 0.9,
			TotalScore: 0.7,
		}},
		DegradedCount:    1,
		ProcessingTimeMs: 1200,
		CreatedAt:        now,
		CompletedAt:      now.Add(time.Second),
	}

	require.NoError(t, repo.Save(ctx, result))

	loaded, err := repo.GetByTaskID(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, result.TaskID, loaded.TaskID)
	assert.Equal(t, result.UserID, loaded.UserID)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, "Pick lock", loaded.Actions[0].Action.ActionText)
	assert.InDelta(t, 0.9, loaded.Actions[0].SkillScore, 1e-9)
	assert.Equal(t, 1, loaded.DegradedCount)
}

func TestPgEvaluationResultRepository_SaveIsUpsert(t *testing.T) {
	pool := setupPostgres(t)
	repo := repository.NewPgEvaluationResultRepository(pool, zerolog.Nop())
	ctx := context.Background()

	taskID := uuid.NewString()
	result := &model.EvaluationResult{TaskID: taskID, UserID: "first", CreatedAt: time.Now(), CompletedAt: time.Now()}
	require.NoError(t, repo.Save(ctx, result))

	result.UserID = "second"
	require.NoError(t, repo.Save(ctx, result))

	loaded, err := repo.GetByTaskID(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.UserID)
}

func TestPgEvaluationResultRepository_GetMissing(t *testing.T) {
	pool := setupPostgres(t)
	repo := repository.NewPgEvaluationResultRepository(pool, zerolog.Nop())

	_, err := repo.GetByTaskID(context.Background(), "no-such-task")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
