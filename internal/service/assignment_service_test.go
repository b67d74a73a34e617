package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	mqcontracts "github.com/fosware/conecta-toolv1-sub004/contracts/mq"
	"github.com/fosware/conecta-toolv1-sub004/internal/apperr"
	"github.com/fosware/conecta-toolv1-sub004/internal/model"
	"github.com/fosware/conecta-toolv1-sub004/pkg/config"
	"github.com/fosware/conecta-toolv1-sub004/pkg/outbox"
)

type assignFixture struct {
	categories *MockCategoryStore
	stages     *MockStageStore
	view       *MockViewStore
	svc        *AssignmentService
}

func newAssignFixture(t *testing.T, cfg config.ProgressConfig) *assignFixture {
	t.Helper()
	f := &assignFixture{
		categories: new(MockCategoryStore),
		stages:     new(MockStageStore),
		view:       new(MockViewStore),
	}
	progress := newProgressService(t, f.view, f.stages, nil)
	f.svc = NewAssignmentService(f.categories, f.stages, progress, cfg, zaptest.NewLogger(t))
	return f
}

// expectScopedRefresh stubs the post-assignment refresh of one category.
func (f *assignFixture) expectScopedRefresh(categoryID int) {
	f.view.On("LoadStatusGroups", mock.Anything, []int{categoryID}).Return([]model.StatusGroup{{CategoryID: categoryID}}, nil)
	f.view.On("ReplaceCategories", mock.Anything, []int{categoryID}, mock.Anything).Return(nil)
}

func eventPayload(t *testing.T, e *outbox.Event) mqcontracts.ProgressRefreshRequestedPayload {
	t.Helper()
	var p mqcontracts.ProgressRefreshRequestedPayload
	require.NoError(t, json.Unmarshal(e.Payload, &p))
	return p
}

func TestAssignStage_MovesAndRecomputesAffectedStages(t *testing.T) {
	f := newAssignFixture(t, config.ProgressConfig{})

	f.categories.On("FindByID", mock.Anything, 7).Return(&model.Category{ID: 7, ProjectID: 1, StageID: intPtr(2)}, nil)
	f.stages.On("FindByID", mock.Anything, 3).Return(&model.Stage{ID: 3, ProjectID: 1}, nil)

	var event *outbox.Event
	f.categories.On("AssignStage", mock.Anything, 7, intPtr(3), mock.AnythingOfType("*outbox.Event")).
		Run(func(args mock.Arguments) { event = args.Get(3).(*outbox.Event) }).
		Return(&model.Category{ID: 7, ProjectID: 1, StageID: intPtr(3)}, nil)

	f.expectScopedRefresh(7)
	f.view.On("FindByStage", mock.Anything, 2).Return([]model.ProgressRow{}, nil)
	f.view.On("FindByStage", mock.Anything, 3).Return([]model.ProgressRow{{CategoryID: 7, Progress: 50, Status: model.ProgressInProgress}}, nil)
	f.stages.On("UpdateProgress", mock.Anything, 2, 0, model.ProgressPending).Return(nil)
	f.stages.On("UpdateProgress", mock.Anything, 3, 50, model.ProgressInProgress).Return(nil)

	got, err := f.svc.AssignStage(context.Background(), 1, 7, intPtr(3))
	require.NoError(t, err)
	assert.Equal(t, 3, *got.StageID)

	require.NotNil(t, event)
	assert.Equal(t, mqcontracts.RoutingKeyProgressRefresh, event.RoutingKey)
	p := eventPayload(t, event)
	assert.Equal(t, 2, *p.OldStageID)
	assert.Equal(t, 3, *p.NewStageID)
	assert.Equal(t, mqcontracts.ReasonAssignStage, p.Reason)
	assert.NotEmpty(t, p.RequestID)

	f.stages.AssertExpectations(t)
	f.stages.AssertNotCalled(t, "ListByProject", mock.Anything, mock.Anything)
}

func TestAssignStage_RoundTripLeavesStageWithoutCategory(t *testing.T) {
	f := newAssignFixture(t, config.ProgressConfig{})

	// 分配到阶段 5
	f.categories.On("FindByID", mock.Anything, 7).Return(&model.Category{ID: 7, ProjectID: 1}, nil).Once()
	f.stages.On("FindByID", mock.Anything, 5).Return(&model.Stage{ID: 5, ProjectID: 1}, nil)
	f.categories.On("AssignStage", mock.Anything, 7, intPtr(5), mock.Anything).
		Return(&model.Category{ID: 7, ProjectID: 1, StageID: intPtr(5)}, nil).Once()
	f.view.On("FindByStage", mock.Anything, 5).
		Return([]model.ProgressRow{{CategoryID: 7, Progress: 80, Status: model.ProgressInProgress}}, nil).Once()
	f.stages.On("UpdateProgress", mock.Anything, 5, 80, model.ProgressInProgress).Return(nil).Once()

	// 取消分配
	f.categories.On("FindByID", mock.Anything, 7).Return(&model.Category{ID: 7, ProjectID: 1, StageID: intPtr(5)}, nil).Once()
	f.categories.On("AssignStage", mock.Anything, 7, (*int)(nil), mock.Anything).
		Return(&model.Category{ID: 7, ProjectID: 1}, nil).Once()
	f.view.On("FindByStage", mock.Anything, 5).Return([]model.ProgressRow{}, nil).Once()
	f.stages.On("UpdateProgress", mock.Anything, 5, 0, model.ProgressPending).Return(nil).Once()

	f.expectScopedRefresh(7)

	_, err := f.svc.AssignStage(context.Background(), 1, 7, intPtr(5))
	require.NoError(t, err)

	got, err := f.svc.AssignStage(context.Background(), 1, 7, nil)
	require.NoError(t, err)
	assert.Nil(t, got.StageID)

	f.stages.AssertExpectations(t)
}

func TestAssignStage_UnknownStageListsAvailable(t *testing.T) {
	f := newAssignFixture(t, config.ProgressConfig{})

	f.categories.On("FindByID", mock.Anything, 7).Return(&model.Category{ID: 7, ProjectID: 1}, nil)
	f.stages.On("FindByID", mock.Anything, 99).Return(nil, apperr.ErrStageNotFound)
	f.stages.On("ListByProject", mock.Anything, 1).Return([]model.Stage{
		{ID: 1, Name: "Diseño"},
		{ID: 2, Name: "Fabricación"},
	}, nil)

	_, err := f.svc.AssignStage(context.Background(), 1, 7, intPtr(99))
	require.ErrorIs(t, err, apperr.ErrStageNotFound)

	var notFound *apperr.StageNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []model.StageRef{{ID: 1, Name: "Diseño"}, {ID: 2, Name: "Fabricación"}}, notFound.AvailableStages)
	f.categories.AssertNotCalled(t, "AssignStage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignStage_CategoryNotFound(t *testing.T) {
	f := newAssignFixture(t, config.ProgressConfig{})
	f.categories.On("FindByID", mock.Anything, 8).Return(nil, apperr.ErrCategoryNotFound)

	_, err := f.svc.AssignStage(context.Background(), 1, 8, intPtr(1))
	assert.ErrorIs(t, err, apperr.ErrCategoryNotFound)
	f.stages.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestAssignStage_RefreshFailureIsSwallowed(t *testing.T) {
	f := newAssignFixture(t, config.ProgressConfig{})

	f.categories.On("FindByID", mock.Anything, 7).Return(&model.Category{ID: 7, ProjectID: 1}, nil)
	f.stages.On("FindByID", mock.Anything, 3).Return(&model.Stage{ID: 3, ProjectID: 1}, nil)
	f.categories.On("AssignStage", mock.Anything, 7, intPtr(3), mock.Anything).
		Return(&model.Category{ID: 7, ProjectID: 1, StageID: intPtr(3)}, nil)
	f.view.On("LoadStatusGroups", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	f.view.On("FindByStage", mock.Anything, 3).Return(nil, errors.New("connection reset"))

	got, err := f.svc.AssignStage(context.Background(), 1, 7, intPtr(3))
	require.NoError(t, err)
	assert.Equal(t, 3, *got.StageID)
}

func TestAssignStage_CrossProjectFlaggedByDefault(t *testing.T) {
	f := newAssignFixture(t, config.ProgressConfig{})

	f.categories.On("FindByID", mock.Anything, 7).Return(&model.Category{ID: 7, ProjectID: 1}, nil)
	f.stages.On("FindByID", mock.Anything, 30).Return(&model.Stage{ID: 30, ProjectID: 2}, nil)
	f.categories.On("AssignStage", mock.Anything, 7, intPtr(30), mock.Anything).
		Return(&model.Category{ID: 7, ProjectID: 1, StageID: intPtr(30)}, nil)
	f.expectScopedRefresh(7)
	f.view.On("FindByStage", mock.Anything, 30).Return([]model.ProgressRow{}, nil)
	f.stages.On("UpdateProgress", mock.Anything, 30, 0, model.ProgressPending).Return(nil)

	_, err := f.svc.AssignStage(context.Background(), 1, 7, intPtr(30))
	assert.NoError(t, err)
}

func TestAssignStage_CrossProjectRejectedWhenEnforced(t *testing.T) {
	f := newAssignFixture(t, config.ProgressConfig{EnforceSameProject: true})

	f.categories.On("FindByID", mock.Anything, 7).Return(&model.Category{ID: 7, ProjectID: 1}, nil)
	f.stages.On("FindByID", mock.Anything, 30).Return(&model.Stage{ID: 30, ProjectID: 2}, nil)

	_, err := f.svc.AssignStage(context.Background(), 1, 7, intPtr(30))
	assert.ErrorIs(t, err, apperr.ErrCrossProjectStage)
	f.categories.AssertNotCalled(t, "AssignStage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignStage_ProjectScopeRecomputesAllStages(t *testing.T) {
	f := newAssignFixture(t, config.ProgressConfig{StageScope: config.StageScopeProject})

	f.categories.On("FindByID", mock.Anything, 7).Return(&model.Category{ID: 7, ProjectID: 1}, nil)
	f.stages.On("FindByID", mock.Anything, 2).Return(&model.Stage{ID: 2, ProjectID: 1}, nil)
	f.categories.On("AssignStage", mock.Anything, 7, intPtr(2), mock.Anything).
		Return(&model.Category{ID: 7, ProjectID: 1, StageID: intPtr(2)}, nil)
	f.expectScopedRefresh(7)
	f.stages.On("ListByProject", mock.Anything, 1).Return([]model.Stage{{ID: 1}, {ID: 2}, {ID: 4}}, nil)
	for _, id := range []int{1, 2, 4} {
		f.view.On("FindByStage", mock.Anything, id).Return([]model.ProgressRow{}, nil)
		f.stages.On("UpdateProgress", mock.Anything, id, 0, model.ProgressPending).Return(nil)
	}

	_, err := f.svc.AssignStage(context.Background(), 1, 7, intPtr(2))
	require.NoError(t, err)
	f.stages.AssertNumberOfCalls(t, "UpdateProgress", 3)
}
