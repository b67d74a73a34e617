package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fosware/conecta-toolv1-sub004/internal/model"
)

type StageAssigner interface {
	AssignStage(ctx context.Context, projectID, categoryID int, stageID *int) (*model.Category, error)
}

type ProjectRequestReader interface {
	Categories(ctx context.Context, requestID int) ([]model.CategoryView, error)
	Stages(ctx context.Context, requestID int) ([]model.StageView, error)
}

type StageProgressReader interface {
	StageProgress(ctx context.Context, stageID int) (*model.StageProgress, error)
}

type ActivityUpdater interface {
	UpdateStatus(ctx context.Context, activityID int, status model.ActivityStatus) (*model.Activity, error)
}

type ProgressRefresher interface {
	RefreshAll(ctx context.Context) error
}

type OutboxReplayer interface {
	ReplayEvent(ctx context.Context, eventID int64) error
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
}

// positiveParam parses a path id; zero and negatives count as malformed.
func positiveParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
