package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/internal/apperr"
	"github.com/fosware/conecta-toolv1-sub004/internal/model"
)

type StageRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewStageRepository(db *pgxpool.Pool, logger *zap.Logger) *StageRepository {
	return &StageRepository{db: db, logger: logger}
}

const stageColumns = `id, project_id, name, description, sort_order, progress, status, is_deleted, created_at, updated_at`

func scanStage(row pgx.Row) (*model.Stage, error) {
	var s model.Stage
	if err := row.Scan(
		&s.ID,
		&s.ProjectID,
		&s.Name,
		&s.Description,
		&s.Order,
		&s.Progress,
		&s.Status,
		&s.IsDeleted,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StageRepository) FindByID(ctx context.Context, id int) (*model.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM stages WHERE id = $1 AND is_deleted = false`

	s, err := scanStage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrStageNotFound
		}
		r.logger.Error("Failed to find stage", zap.Int("stage_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to find stage: %w", err)
	}
	return s, nil
}

func (r *StageRepository) ListByProject(ctx context.Context, projectID int) ([]model.Stage, error) {
	return r.ListByProjects(ctx, []int{projectID})
}

// ListByProjects 按项目和排序字段返回阶段
func (r *StageRepository) ListByProjects(ctx context.Context, projectIDs []int) ([]model.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM stages
		WHERE project_id = ANY($1) AND is_deleted = false
		ORDER BY project_id, sort_order, id
	`
	rows, err := r.db.Query(ctx, query, projectIDs)
	if err != nil {
		r.logger.Error("Failed to list stages", zap.Ints("project_ids", projectIDs), zap.Error(err))
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	var stages []model.Stage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, *s)
	}
	return stages, rows.Err()
}

// UpdateProgress 回写阶段的冗余进度字段
func (r *StageRepository) UpdateProgress(ctx context.Context, stageID, progress int, status string) error {
	r.logger.Debug("Updating stage progress",
		zap.Int("stage_id", stageID),
		zap.Int("progress", progress),
		zap.String("status", status),
	)

	_, err := r.db.Exec(ctx, `
		UPDATE stages
		SET progress = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`, progress, status, stageID)
	if err != nil {
		r.logger.Error("Failed to update stage progress", zap.Int("stage_id", stageID), zap.Error(err))
		return fmt.Errorf("failed to update stage progress: %w", err)
	}
	return nil
}

// ListProjectIDs 返回拥有阶段的项目
func (r *StageRepository) ListProjectIDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT project_id FROM stages WHERE is_deleted = false ORDER BY project_id
	`)
	if err != nil {
		r.logger.Error("Failed to list stage projects", zap.Error(err))
		return nil, fmt.Errorf("failed to list stage projects: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
