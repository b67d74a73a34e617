package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/internal/cache"
	"github.com/fosware/conecta-toolv1-sub004/internal/model"
	"github.com/fosware/conecta-toolv1-sub004/internal/progress"
	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
	"github.com/fosware/conecta-toolv1-sub004/pkg/metrics"
)

// ProgressService owns the progress view and the denormalized stage progress.
type ProgressService struct {
	view   ProgressViewStore
	stages StageStore
	cache  cache.ProgressCache
	logger *zap.Logger
	now    func() time.Time
}

func NewProgressService(view ProgressViewStore, stages StageStore, c cache.ProgressCache, logger *zap.Logger) *ProgressService {
	if c == nil {
		c = cache.NoopProgressCache{}
	}
	return &ProgressService{
		view:   view,
		stages: stages,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

func (s *ProgressService) buildRows(groups []model.StatusGroup) []model.ProgressRow {
	now := s.now().UTC()
	stats := progress.Tally(groups)
	rows := make([]model.ProgressRow, len(stats))
	for i, st := range stats {
		rows[i] = progress.Row(st.CategoryID, st.Counts, now)
	}
	return rows
}

// Refresh recomputes every category row and replaces the whole view.
// On failure the previous rows stay in place.
func (s *ProgressService) Refresh(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.RecordProgressRefresh("full", err, time.Since(start)) }()

	log := logger.WithTrace(ctx, s.logger)

	groups, err := s.view.LoadStatusGroups(ctx, nil)
	if err != nil {
		return fmt.Errorf("refresh progress view: %w", err)
	}
	rows := s.buildRows(groups)

	if err = s.view.ReplaceAll(ctx, rows); err != nil {
		return fmt.Errorf("refresh progress view: %w", err)
	}

	// 缓存写失败不影响刷新结果
	_ = s.cache.Set(ctx, rows)

	log.Info("Progress view refreshed", zap.Int("categories", len(rows)), zap.Duration("took", time.Since(start)))
	return nil
}

// RefreshCategories recomputes only the rows of the given categories.
func (s *ProgressService) RefreshCategories(ctx context.Context, categoryIDs []int) (err error) {
	ids := uniqueInts(categoryIDs)
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { metrics.RecordProgressRefresh("categories", err, time.Since(start)) }()

	groups, err := s.view.LoadStatusGroups(ctx, ids)
	if err != nil {
		return fmt.Errorf("refresh categories: %w", err)
	}
	rows := s.buildRows(groups)

	if err = s.view.ReplaceCategories(ctx, ids, rows); err != nil {
		return fmt.Errorf("refresh categories: %w", err)
	}

	_ = s.cache.Invalidate(ctx, ids)

	logger.WithTrace(ctx, s.logger).Info("Progress rows refreshed",
		zap.Ints("category_ids", ids),
		zap.Int("rows", len(rows)),
	)
	return nil
}

// QueryByIDs returns one row per requested id. Categories without a view row
// come back as 0 / pending.
func (s *ProgressService) QueryByIDs(ctx context.Context, categoryIDs []int) (map[int]model.ProgressRow, error) {
	ids := uniqueInts(categoryIDs)
	result := make(map[int]model.ProgressRow, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	cached, err := s.cache.Get(ctx, ids)
	if err != nil {
		cached = nil
	}

	missing := make([]int, 0, len(ids))
	for _, id := range ids {
		if row, ok := cached[id]; ok {
			result[id] = row
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		found, err := s.view.FindByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}

		fill := make([]model.ProgressRow, 0, len(found))
		for _, id := range missing {
			row, ok := found[id]
			if !ok {
				result[id] = model.DefaultProgressRow(id)
				continue
			}
			result[id] = row
			fill = append(fill, row)
		}
		// 回填用短 TTL：并发的 RefreshCategories 失效后，旧行只会短暂残留
		_ = s.cache.Fill(ctx, fill)
	}

	return result, nil
}

// QueryByStage joins the view against the current category to stage pointers.
func (s *ProgressService) QueryByStage(ctx context.Context, stageID int) ([]model.ProgressRow, error) {
	return s.view.FindByStage(ctx, stageID)
}

// StageProgress returns a stage with the rows of its assigned categories.
func (s *ProgressService) StageProgress(ctx context.Context, stageID int) (*model.StageProgress, error) {
	stage, err := s.stages.FindByID(ctx, stageID)
	if err != nil {
		return nil, err
	}

	rows, err := s.view.FindByStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.ProgressRow{}
	}

	live := progress.ForStage(rows)
	return &model.StageProgress{
		Stage:      *stage,
		Live:       live.Progress,
		LiveStatus: live.Status,
		Categories: rows,
	}, nil
}

// RecomputeStage averages the stage's current categories and writes the
// result onto the stage row.
func (s *ProgressService) RecomputeStage(ctx context.Context, stageID int) (res progress.Result, err error) {
	defer func() { metrics.RecordStageRecompute(err) }()

	rows, err := s.view.FindByStage(ctx, stageID)
	if err != nil {
		return progress.Result{}, fmt.Errorf("recompute stage %d: %w", stageID, err)
	}

	res = progress.ForStage(rows)
	if err = s.stages.UpdateProgress(ctx, stageID, res.Progress, res.Status); err != nil {
		return progress.Result{}, fmt.Errorf("recompute stage %d: %w", stageID, err)
	}

	logger.WithTrace(ctx, s.logger).Debug("Stage recomputed",
		zap.Int("stage_id", stageID),
		zap.Int("categories", len(rows)),
		zap.Int("progress", res.Progress),
		zap.String("status", res.Status),
	)
	return res, nil
}

// RecomputeStages keeps going past individual failures and returns them joined.
func (s *ProgressService) RecomputeStages(ctx context.Context, stageIDs []int) error {
	var errs []error
	for _, id := range uniqueInts(stageIDs) {
		if _, err := s.RecomputeStage(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *ProgressService) RecomputeProjectStages(ctx context.Context, projectID int) error {
	stages, err := s.stages.ListByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("recompute project %d stages: %w", projectID, err)
	}

	ids := make([]int, len(stages))
	for i, st := range stages {
		ids[i] = st.ID
	}
	return s.RecomputeStages(ctx, ids)
}

func (s *ProgressService) RecomputeAllStages(ctx context.Context) error {
	projectIDs, err := s.stages.ListProjectIDs(ctx)
	if err != nil {
		return fmt.Errorf("recompute all stages: %w", err)
	}

	var errs []error
	for _, id := range projectIDs {
		if err := s.RecomputeProjectStages(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RefreshAll is the reconciliation pass: full view refresh, then every stage.
func (s *ProgressService) RefreshAll(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	return s.RecomputeAllStages(ctx)
}
