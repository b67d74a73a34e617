package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/internal/model"
	"github.com/fosware/conecta-toolv1-sub004/pkg/metrics"
	"github.com/fosware/conecta-toolv1-sub004/pkg/otel"
)

const progressViewTable = "category_progress_view"

var progressViewColumns = []string{
	"category_id", "progress", "status",
	"total", "completed", "in_progress", "pending", "cancelled",
	"refreshed_at",
}

// lockProgressView 让并发的替换串行执行：SHARE ROW EXCLUSIVE 与自身冲突，但不阻塞读
const lockProgressView = `LOCK TABLE category_progress_view IN SHARE ROW EXCLUSIVE MODE`

// viewDB 是 *pgxpool.Pool 上本仓库用到的部分
type viewDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ProgressViewRepository 维护 category_progress_view 投影表
type ProgressViewRepository struct {
	db     viewDB
	logger *zap.Logger
}

func NewProgressViewRepository(db *pgxpool.Pool, logger *zap.Logger) *ProgressViewRepository {
	return &ProgressViewRepository{db: db, logger: logger}
}

func (r *ProgressViewRepository) observe(ctx context.Context, operation, table string, fn func(context.Context) error) error {
	start := time.Now()
	err := otel.WithDBSpan(ctx, operation, table, fn)
	metrics.RecordDBQueryDuration(operation, table, time.Since(start))
	return err
}

// LoadStatusGroups 按 (分类, 状态) 统计未删除且启用的活动，ids 为空时统计全部分类。
// 没有活动的分类返回一行空状态、数量 0。
func (r *ProgressViewRepository) LoadStatusGroups(ctx context.Context, categoryIDs []int) ([]model.StatusGroup, error) {
	query := `
		SELECT c.id, COALESCE(a.status, ''), COUNT(a.id)
		FROM categories c
		LEFT JOIN activities a
		       ON a.category_id = c.id AND a.is_deleted = false AND a.is_active = true
		WHERE c.is_deleted = false
		  AND ($1::int[] IS NULL OR c.id = ANY($1))
		GROUP BY c.id, a.status
		ORDER BY c.id, a.status
	`

	var ids any
	if len(categoryIDs) > 0 {
		ids = categoryIDs
	}

	var groups []model.StatusGroup
	err := r.observe(ctx, "select", "activities", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, ids)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				g      model.StatusGroup
				status string
			)
			if err := rows.Scan(&g.CategoryID, &status, &g.N); err != nil {
				return err
			}
			g.Status = model.ActivityStatus(status)
			groups = append(groups, g)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to load activity status groups", zap.Int("categories", len(categoryIDs)), zap.Error(err))
		return nil, fmt.Errorf("failed to load activity status groups: %w", err)
	}
	return groups, nil
}

// ReplaceAll 在一个事务中替换整张视图；失败时保留旧数据。
// 替换之间通过表锁串行，避免重叠的 DELETE + COPY 撞上主键
func (r *ProgressViewRepository) ReplaceAll(ctx context.Context, rows []model.ProgressRow) error {
	return r.replace(ctx, nil, rows)
}

// ReplaceCategories 只替换指定分类的行
func (r *ProgressViewRepository) ReplaceCategories(ctx context.Context, categoryIDs []int, rows []model.ProgressRow) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	return r.replace(ctx, categoryIDs, rows)
}

func (r *ProgressViewRepository) replace(ctx context.Context, categoryIDs []int, rows []model.ProgressRow) error {
	r.logger.Debug("Replacing progress view rows",
		zap.Int("scope", len(categoryIDs)),
		zap.Int("rows", len(rows)),
	)

	err := r.observe(ctx, "replace", progressViewTable, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		if _, err = tx.Exec(ctx, lockProgressView); err != nil {
			return fmt.Errorf("failed to lock progress view: %w", err)
		}

		if categoryIDs == nil {
			_, err = tx.Exec(ctx, `DELETE FROM category_progress_view`)
		} else {
			_, err = tx.Exec(ctx, `DELETE FROM category_progress_view WHERE category_id = ANY($1)`, categoryIDs)
		}
		if err != nil {
			return fmt.Errorf("failed to clear progress view: %w", err)
		}

		if len(rows) > 0 {
			_, err = tx.CopyFrom(ctx, pgx.Identifier{progressViewTable}, progressViewColumns,
				pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
					row := rows[i]
					return []any{
						row.CategoryID, row.Progress, row.Status,
						row.Counts.Total, row.Counts.Completed, row.Counts.InProgress,
						row.Counts.Pending, row.Counts.Cancelled,
						row.RefreshedAt,
					}, nil
				}),
			)
			if err != nil {
				return fmt.Errorf("failed to copy progress rows: %w", err)
			}
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		r.logger.Error("Failed to replace progress view", zap.Int("rows", len(rows)), zap.Error(err))
		return err
	}

	r.logger.Info("Progress view replaced", zap.Int("scope", len(categoryIDs)), zap.Int("rows", len(rows)))
	return nil
}

// FindByIDs 返回已有的视图行，缺失的分类不在结果中
func (r *ProgressViewRepository) FindByIDs(ctx context.Context, categoryIDs []int) (map[int]model.ProgressRow, error) {
	result := make(map[int]model.ProgressRow, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT category_id, progress, status, total, completed, in_progress, pending, cancelled, refreshed_at
		FROM category_progress_view
		WHERE category_id = ANY($1)
	`
	err := r.observe(ctx, "select", progressViewTable, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, categoryIDs)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			row, err := scanProgressRow(rows)
			if err != nil {
				return err
			}
			result[row.CategoryID] = row
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to query progress view", zap.Int("categories", len(categoryIDs)), zap.Error(err))
		return nil, fmt.Errorf("failed to query progress view: %w", err)
	}
	return result, nil
}

// FindByStage 按分类当前的 stage_id 关联视图，没有视图行的分类按 0 / pending 返回
func (r *ProgressViewRepository) FindByStage(ctx context.Context, stageID int) ([]model.ProgressRow, error) {
	query := `
		SELECT c.id,
		       COALESCE(v.progress, 0),
		       COALESCE(v.status, 'pending'),
		       COALESCE(v.total, 0),
		       COALESCE(v.completed, 0),
		       COALESCE(v.in_progress, 0),
		       COALESCE(v.pending, 0),
		       COALESCE(v.cancelled, 0),
		       COALESCE(v.refreshed_at, 'epoch'::timestamptz)
		FROM categories c
		LEFT JOIN category_progress_view v ON v.category_id = c.id
		WHERE c.stage_id = $1 AND c.is_deleted = false
		ORDER BY c.id
	`

	var result []model.ProgressRow
	err := r.observe(ctx, "select", progressViewTable, func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, stageID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			row, err := scanProgressRow(rows)
			if err != nil {
				return err
			}
			result = append(result, row)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to query stage progress", zap.Int("stage_id", stageID), zap.Error(err))
		return nil, fmt.Errorf("failed to query stage progress: %w", err)
	}
	return result, nil
}

func scanProgressRow(row pgx.Row) (model.ProgressRow, error) {
	var p model.ProgressRow
	err := row.Scan(
		&p.CategoryID,
		&p.Progress,
		&p.Status,
		&p.Counts.Total,
		&p.Counts.Completed,
		&p.Counts.InProgress,
		&p.Counts.Pending,
		&p.Counts.Cancelled,
		&p.RefreshedAt,
	)
	return p, err
}
