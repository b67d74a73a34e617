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

type CategoryRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewCategoryRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{db: db, outbox: outboxRepo, logger: logger}
}

const categoryColumns = `id, project_id, stage_id, name, description, is_active, is_deleted, created_at, updated_at`

func scanCategory(row pgx.Row) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(
		&c.ID,
		&c.ProjectID,
		&c.StageID,
		&c.Name,
		&c.Description,
		&c.IsActive,
		&c.IsDeleted,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByID 获取未删除的分类
func (r *CategoryRepository) FindByID(ctx context.Context, id int) (*model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 AND is_deleted = false`

	c, err := scanCategory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrCategoryNotFound
		}
		r.logger.Error("Failed to find category", zap.Int("category_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return c, nil
}

// AssignStage 更新分类的阶段指针，event 非空时在同一事务中写入 outbox
func (r *CategoryRepository) AssignStage(ctx context.Context, categoryID int, stageID *int, event *outbox.Event) (*model.Category, error) {
	r.logger.Debug("Assigning category to stage",
		zap.Int("category_id", categoryID),
		zap.Any("stage_id", stageID),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE categories
		SET stage_id = $1, updated_at = NOW()
		WHERE id = $2 AND is_deleted = false
		RETURNING ` + categoryColumns

	c, err := scanCategory(tx.QueryRow(ctx, query, stageID, categoryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrCategoryNotFound
		}
		r.logger.Error("Failed to update category stage", zap.Int("category_id", categoryID), zap.Error(err))
		return nil, fmt.Errorf("failed to update category stage: %w", err)
	}

	if event != nil {
		if err := r.outbox.InsertEvent(ctx, tx, event); err != nil {
			r.logger.Error("Failed to insert outbox event", zap.Int("category_id", categoryID), zap.Error(err))
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Category stage updated",
		zap.Int("category_id", categoryID),
		zap.Any("stage_id", stageID),
	)
	return c, nil
}

// ListByProjects 获取多个项目下的所有未删除分类
func (r *CategoryRepository) ListByProjects(ctx context.Context, projectIDs []int) ([]model.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE project_id = ANY($1) AND is_deleted = false
		ORDER BY project_id, id
	`
	rows, err := r.db.Query(ctx, query, projectIDs)
	if err != nil {
		r.logger.Error("Failed to list categories", zap.Ints("project_ids", projectIDs), zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}
