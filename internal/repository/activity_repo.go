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
	"github.com/fosware/conecta-toolv1-sub004/pkg/outbox"
)

type ActivityRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewActivityRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, outbox: outboxRepo, logger: logger}
}

const activityColumns = `id, category_id, name, description, status, is_active, is_deleted, created_at, updated_at`

func scanActivity(row pgx.Row) (*model.Activity, error) {
	var a model.Activity
	if err := row.Scan(
		&a.ID,
		&a.CategoryID,
		&a.Name,
		&a.Description,
		&a.Status,
		&a.IsActive,
		&a.IsDeleted,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ActivityRepository) FindByID(ctx context.Context, id int) (*model.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1 AND is_deleted = false`

	a, err := scanActivity(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrActivityNotFound
		}
		r.logger.Error("Failed to find activity", zap.Int("activity_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to find activity: %w", err)
	}
	return a, nil
}

// UpdateStatus 更新活动状态，event 非空时在同一事务中写入 outbox
func (r *ActivityRepository) UpdateStatus(ctx context.Context, id int, status model.ActivityStatus, event *outbox.Event) (*model.Activity, error) {
	r.logger.Debug("Updating activity status",
		zap.Int("activity_id", id),
		zap.String("status", string(status)),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE activities
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND is_deleted = false
		RETURNING ` + activityColumns

	a, err := scanActivity(tx.QueryRow(ctx, query, status, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrActivityNotFound
		}
		r.logger.Error("Failed to update activity status", zap.Int("activity_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update activity status: %w", err)
	}

	if event != nil {
		if err := r.outbox.InsertEvent(ctx, tx, event); err != nil {
			r.logger.Error("Failed to insert outbox event", zap.Int("activity_id", id), zap.Error(err))
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Activity status updated",
		zap.Int("activity_id", id),
		zap.Int("category_id", a.CategoryID),
		zap.String("status", string(status)),
	)
	return a, nil
}

// ListByCategories 返回分类下未删除的活动
func (r *ActivityRepository) ListByCategories(ctx context.Context, categoryIDs []int) ([]model.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE category_id = ANY($1) AND is_deleted = false
		ORDER BY category_id, id
	`
	rows, err := r.db.Query(ctx, query, categoryIDs)
	if err != nil {
		r.logger.Error("Failed to list activities", zap.Int("categories", len(categoryIDs)), zap.Error(err))
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}
