// Package service implements the progress operations on top of the repositories.
package service

import (
	"context"

	"github.com/fosware/conecta-toolv1-sub004/internal/model"
	"github.com/fosware/conecta-toolv1-sub004/pkg/outbox"
)

type CategoryStore interface {
	FindByID(ctx context.Context, id int) (*model.Category, error)
	AssignStage(ctx context.Context, categoryID int, stageID *int, event *outbox.Event) (*model.Category, error)
	ListByProjects(ctx context.Context, projectIDs []int) ([]model.Category, error)
}

type StageStore interface {
	FindByID(ctx context.Context, id int) (*model.Stage, error)
	ListByProject(ctx context.Context, projectID int) ([]model.Stage, error)
	ListByProjects(ctx context.Context, projectIDs []int) ([]model.Stage, error)
	UpdateProgress(ctx context.Context, stageID, progress int, status string) error
	ListProjectIDs(ctx context.Context) ([]int, error)
}

type ActivityStore interface {
	FindByID(ctx context.Context, id int) (*model.Activity, error)
	UpdateStatus(ctx context.Context, id int, status model.ActivityStatus, event *outbox.Event) (*model.Activity, error)
	ListByCategories(ctx context.Context, categoryIDs []int) ([]model.Activity, error)
}

type ProgressViewStore interface {
	LoadStatusGroups(ctx context.Context, categoryIDs []int) ([]model.StatusGroup, error)
	ReplaceAll(ctx context.Context, rows []model.ProgressRow) error
	ReplaceCategories(ctx context.Context, categoryIDs []int, rows []model.ProgressRow) error
	FindByIDs(ctx context.Context, categoryIDs []int) (map[int]model.ProgressRow, error)
	FindByStage(ctx context.Context, stageID int) ([]model.ProgressRow, error)
}

type ProjectRequestStore interface {
	FindByID(ctx context.Context, id int) (*model.ProjectRequest, error)
	ListProjects(ctx context.Context, requestID int) ([]model.Project, error)
}

// uniqueInts drops duplicates and keeps the first-seen order.
func uniqueInts(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
