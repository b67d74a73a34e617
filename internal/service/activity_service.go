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
	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
	"github.com/fosware/conecta-toolv1-sub004/pkg/outbox"
	"github.com/fosware/conecta-toolv1-sub004/pkg/trace"
)

type ActivityService struct {
	activities ActivityStore
	categories CategoryStore
	progress   *ProgressService
	logger     *zap.Logger
}

func NewActivityService(activities ActivityStore, categories CategoryStore, progress *ProgressService, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		activities: activities,
		categories: categories,
		progress:   progress,
		logger:     logger,
	}
}

// UpdateStatus changes an activity's status, then refreshes its category row
// and the category's stage. The follow-up is best effort.
func (s *ActivityService) UpdateStatus(ctx context.Context, activityID int, status model.ActivityStatus) (*model.Activity, error) {
	if !status.Valid() {
		return nil, apperr.ErrInvalidStatus
	}

	log := logger.WithTrace(ctx, s.logger).With(
		zap.Int("activity_id", activityID),
		zap.String("status", string(status)),
	)

	current, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		return nil, err
	}

	// 分类可能已被软删除，这时只更新活动本身
	category, err := s.categories.FindByID(ctx, current.CategoryID)
	if err != nil && !errors.Is(err, apperr.ErrCategoryNotFound) {
		return nil, err
	}

	payload := mqcontracts.ProgressRefreshRequestedPayload{
		RequestID:   uuid.NewString(),
		Reason:      mqcontracts.ReasonActivityStatus,
		CategoryID:  current.CategoryID,
		ActivityID:  activityID,
		TraceID:     trace.FromContext(ctx),
		RequestedAt: time.Now().UTC(),
	}
	if category != nil {
		payload.ProjectID = category.ProjectID
		payload.OldStageID = category.StageID
		payload.NewStageID = category.StageID
	}

	aggregateID := int64(activityID)
	event, err := outbox.NewEvent("activity", &aggregateID, mqcontracts.RoutingKeyProgressRefresh, payload)
	if err != nil {
		return nil, err
	}

	updated, err := s.activities.UpdateStatus(ctx, activityID, status, event)
	if err != nil {
		return nil, err
	}
	log.Info("Activity status changed", zap.String("previous", string(current.Status)))

	if err := s.progress.RefreshCategories(ctx, []int{updated.CategoryID}); err != nil {
		log.Error("Progress refresh after status change failed", zap.Error(err))
	}
	if category != nil && category.StageID != nil {
		if err := s.progress.RecomputeStages(ctx, []int{*category.StageID}); err != nil {
			log.Error("Stage recompute after status change failed", zap.Error(err))
		}
	}

	return updated, nil
}
