package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fosware/conecta-toolv1-sub004/internal/model"
	"github.com/fosware/conecta-toolv1-sub004/pkg/outbox"
)

type MockCategoryStore struct {
	mock.Mock
}

func (m *MockCategoryStore) FindByID(ctx context.Context, id int) (*model.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockCategoryStore) AssignStage(ctx context.Context, categoryID int, stageID *int, event *outbox.Event) (*model.Category, error) {
	args := m.Called(ctx, categoryID, stageID, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockCategoryStore) ListByProjects(ctx context.Context, projectIDs []int) ([]model.Category, error) {
	args := m.Called(ctx, projectIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

type MockStageStore struct {
	mock.Mock
}

func (m *MockStageStore) FindByID(ctx context.Context, id int) (*model.Stage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Stage), args.Error(1)
}

func (m *MockStageStore) ListByProject(ctx context.Context, projectID int) ([]model.Stage, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Stage), args.Error(1)
}

func (m *MockStageStore) ListByProjects(ctx context.Context, projectIDs []int) ([]model.Stage, error) {
	args := m.Called(ctx, projectIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Stage), args.Error(1)
}

func (m *MockStageStore) UpdateProgress(ctx context.Context, stageID, progress int, status string) error {
	return m.Called(ctx, stageID, progress, status).Error(0)
}

func (m *MockStageStore) ListProjectIDs(ctx context.Context) ([]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

type MockActivityStore struct {
	mock.Mock
}

func (m *MockActivityStore) FindByID(ctx context.Context, id int) (*model.Activity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Activity), args.Error(1)
}

func (m *MockActivityStore) UpdateStatus(ctx context.Context, id int, status model.ActivityStatus, event *outbox.Event) (*model.Activity, error) {
	args := m.Called(ctx, id, status, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Activity), args.Error(1)
}

func (m *MockActivityStore) ListByCategories(ctx context.Context, categoryIDs []int) ([]model.Activity, error) {
	args := m.Called(ctx, categoryIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Activity), args.Error(1)
}

type MockViewStore struct {
	mock.Mock
}

func (m *MockViewStore) LoadStatusGroups(ctx context.Context, categoryIDs []int) ([]model.StatusGroup, error) {
	args := m.Called(ctx, categoryIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatusGroup), args.Error(1)
}

func (m *MockViewStore) ReplaceAll(ctx context.Context, rows []model.ProgressRow) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockViewStore) ReplaceCategories(ctx context.Context, categoryIDs []int, rows []model.ProgressRow) error {
	return m.Called(ctx, categoryIDs, rows).Error(0)
}

func (m *MockViewStore) FindByIDs(ctx context.Context, categoryIDs []int) (map[int]model.ProgressRow, error) {
	args := m.Called(ctx, categoryIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]model.ProgressRow), args.Error(1)
}

func (m *MockViewStore) FindByStage(ctx context.Context, stageID int) ([]model.ProgressRow, error) {
	args := m.Called(ctx, stageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProgressRow), args.Error(1)
}

type MockProjectRequestStore struct {
	mock.Mock
}

func (m *MockProjectRequestStore) FindByID(ctx context.Context, id int) (*model.ProjectRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProjectRequest), args.Error(1)
}

func (m *MockProjectRequestStore) ListProjects(ctx context.Context, requestID int) ([]model.Project, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Project), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, categoryIDs []int) (map[int]model.ProgressRow, error) {
	args := m.Called(ctx, categoryIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]model.ProgressRow), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, rows []model.ProgressRow) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockCache) Fill(ctx context.Context, rows []model.ProgressRow) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, categoryIDs []int) error {
	return m.Called(ctx, categoryIDs).Error(0)
}

func intPtr(v int) *int { return &v }
