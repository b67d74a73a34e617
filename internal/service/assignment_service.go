package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "github.com/fosware/conecta-toolv1-sub004/contracts/mq"
	"github.com/fosware/conecta-toolv1-sub004/internal/apperr"
	"github.com/fosware/conecta-toolv1-sub004/internal/model"
	"github.com/fosware/conecta-toolv1-sub004/pkg/config"
	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
	"github.com/fosware/conecta-toolv1-sub004/pkg/metrics"
	"github.com/fosware/conecta-toolv1-sub004/pkg/outbox"
	"github.com/fosware/conecta-toolv1-sub004/pkg/trace"
)

// AssignmentService moves categories between stages.
type AssignmentService struct {
	categories CategoryStore
	stages     StageStore
	progress   *ProgressService
	cfg        config.ProgressConfig
	logger     *zap.Logger
}

func NewAssignmentService(categories CategoryStore, stages StageStore, progress *ProgressService, cfg config.ProgressConfig, logger *zap.Logger) *AssignmentService {
	cfg.ApplyDefaults()
	return &AssignmentService{
		categories: categories,
		stages:     stages,
		progress:   progress,
		cfg:        cfg,
		logger:     logger,
	}
}

// AssignStage points the category at stageID, or detaches it when stageID is nil.
//
// The pointer update and its refresh event commit together. The synchronous
// refresh and stage recompute that follow are best effort: their failures are
// logged and the updated category is still returned.
func (s *AssignmentService) AssignStage(ctx context.Context, projectID, categoryID int, stageID *int) (*model.Category, error) {
	log := logger.WithTrace(ctx, s.logger).With(
		zap.Int("project_id", projectID),
		zap.Int("category_id", categoryID),
		zap.Any("stage_id", stageID),
	)

	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, apperr.ErrCategoryNotFound) {
			metrics.IncrementAssignment("not_found")
		} else {
			metrics.IncrementAssignment("error")
		}
		return nil, err
	}

	if stageID != nil {
		if err := s.checkStage(ctx, log, projectID, category, *stageID); err != nil {
			return nil, err
		}
	}

	oldStageID := category.StageID
	event, err := s.refreshEvent(ctx, category, oldStageID, stageID)
	if err != nil {
		metrics.IncrementAssignment("error")
		return nil, err
	}

	updated, err := s.categories.AssignStage(ctx, categoryID, stageID, event)
	if err != nil {
		if errors.Is(err, apperr.ErrCategoryNotFound) {
			metrics.IncrementAssignment("not_found")
		} else {
			metrics.IncrementAssignment("error")
		}
		return nil, err
	}

	if stageID == nil {
		metrics.IncrementAssignment("unassigned")
	} else {
		metrics.IncrementAssignment("assigned")
	}
	log.Info("Category assigned", zap.Any("old_stage_id", oldStageID))

	s.syncDerived(ctx, log, updated, oldStageID, stageID)
	return updated, nil
}

func (s *AssignmentService) checkStage(ctx context.Context, log *zap.Logger, projectID int, category *model.Category, stageID int) error {
	stage, err := s.stages.FindByID(ctx, stageID)
	if err != nil {
		if !errors.Is(err, apperr.ErrStageNotFound) {
			metrics.IncrementAssignment("error")
			return err
		}
		metrics.IncrementAssignment("not_found")
		return s.stageNotFound(ctx, log, projectID, stageID)
	}

	if stage.ProjectID != category.ProjectID {
		metrics.IncrementCrossProjectAssignment()
		log.Warn("Stage belongs to a different project than the category",
			zap.Int("category_project_id", category.ProjectID),
			zap.Int("stage_project_id", stage.ProjectID),
		)
		if s.cfg.EnforceSameProject {
			metrics.IncrementAssignment("invalid")
			return &apperr.CrossProjectError{
				CategoryProjectID: category.ProjectID,
				StageProjectID:    stage.ProjectID,
			}
		}
	}
	return nil
}

func (s *AssignmentService) stageNotFound(ctx context.Context, log *zap.Logger, projectID, stageID int) error {
	notFound := &apperr.StageNotFoundError{
		StageID:         stageID,
		ProjectID:       projectID,
		AvailableStages: []model.StageRef{},
	}

	stages, err := s.stages.ListByProject(ctx, projectID)
	if err != nil {
		log.Warn("Failed to list available stages", zap.Error(err))
		return notFound
	}
	for _, st := range stages {
		notFound.AvailableStages = append(notFound.AvailableStages, model.StageRef{ID: st.ID, Name: st.Name})
	}

	log.Info("Target stage not found", zap.Int("available_stages", len(notFound.AvailableStages)))
	return notFound
}

func (s *AssignmentService) refreshEvent(ctx context.Context, category *model.Category, oldStageID, newStageID *int) (*outbox.Event, error) {
	aggregateID := int64(category.ID)
	return outbox.NewEvent("category", &aggregateID, mqcontracts.RoutingKeyProgressRefresh,
		mqcontracts.ProgressRefreshRequestedPayload{
			RequestID:   uuid.NewString(),
			Reason:      mqcontracts.ReasonAssignStage,
			ProjectID:   category.ProjectID,
			CategoryID:  category.ID,
			OldStageID:  oldStageID,
			NewStageID:  newStageID,
			TraceID:     trace.FromContext(ctx),
			RequestedAt: time.Now().UTC(),
		})
}

// syncDerived refreshes the moved category's row and recomputes the stages in scope.
func (s *AssignmentService) syncDerived(ctx context.Context, log *zap.Logger, category *model.Category, oldStageID, newStageID *int) {
	if err := s.progress.RefreshCategories(ctx, []int{category.ID}); err != nil {
		log.Error("Progress refresh after assignment failed", zap.Error(err))
	}

	stageIDs := affectedStages(oldStageID, newStageID)
	if s.cfg.StageScope == config.StageScopeProject {
		stages, err := s.stages.ListByProject(ctx, category.ProjectID)
		if err != nil {
			log.Error("Failed to list project stages for recompute", zap.Error(err))
		}
		for _, st := range stages {
			stageIDs = append(stageIDs, st.ID)
		}
	}

	if err := s.progress.RecomputeStages(ctx, stageIDs); err != nil {
		log.Error("Stage recompute after assignment failed", zap.Error(err))
	}
}

func affectedStages(ids ...*int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			out = append(out, *id)
		}
	}
	return out
}
