package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fosware/conecta-toolv1-sub004/internal/apperr"
	"github.com/fosware/conecta-toolv1-sub004/internal/model"
	"github.com/fosware/conecta-toolv1-sub004/pkg/outbox"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockAssigner struct {
	mock.Mock
}

func (m *MockAssigner) AssignStage(ctx context.Context, projectID, categoryID int, stageID *int) (*model.Category, error) {
	args := m.Called(ctx, projectID, categoryID, stageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

type MockRequestReader struct {
	mock.Mock
}

func (m *MockRequestReader) Categories(ctx context.Context, requestID int) ([]model.CategoryView, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CategoryView), args.Error(1)
}

func (m *MockRequestReader) Stages(ctx context.Context, requestID int) ([]model.StageView, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StageView), args.Error(1)
}

type MockUpdater struct {
	mock.Mock
}

func (m *MockUpdater) UpdateStatus(ctx context.Context, activityID int, status model.ActivityStatus) (*model.Activity, error) {
	args := m.Called(ctx, activityID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Activity), args.Error(1)
}

type MockAdmin struct {
	mock.Mock
}

func (m *MockAdmin) RefreshAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockAdmin) ReplayEvent(ctx context.Context, eventID int64) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockAdmin) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func intPtr(v int) *int { return &v }

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func assignRouter(t *testing.T, m *MockAssigner) *gin.Engine {
	r := gin.New()
	h := NewCategoryHandler(m, zaptest.NewLogger(t))
	r.PUT("/projects/:projectId/categories/:categoryId/assign-stage", h.AssignStage)
	return r
}

func TestAssignStage_Success(t *testing.T) {
	m := new(MockAssigner)
	m.On("AssignStage", mock.Anything, 1, 7, intPtr(3)).Return(&model.Category{ID: 7, ProjectID: 1, StageID: intPtr(3)}, nil)

	w := do(assignRouter(t, m), http.MethodPut, "/projects/1/categories/7/assign-stage", `{"stageId":3}`)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 3, body["stageId"])
	m.AssertExpectations(t)
}

func TestAssignStage_NullAndOmittedUnassign(t *testing.T) {
	for _, body := range []string{`{"stageId":null}`, `{}`} {
		m := new(MockAssigner)
		m.On("AssignStage", mock.Anything, 1, 7, (*int)(nil)).Return(&model.Category{ID: 7, ProjectID: 1}, nil)

		w := do(assignRouter(t, m), http.MethodPut, "/projects/1/categories/7/assign-stage", body)

		assert.Equal(t, http.StatusOK, w.Code, body)
		assert.Nil(t, decode(t, w)["stageId"], body)
		m.AssertExpectations(t)
	}
}

func TestAssignStage_BadRequests(t *testing.T) {
	cases := []struct {
		name, path, body string
	}{
		{"project id", "/projects/abc/categories/7/assign-stage", `{"stageId":3}`},
		{"category id", "/projects/1/categories/x/assign-stage", `{"stageId":3}`},
		{"stage id type", "/projects/1/categories/7/assign-stage", `{"stageId":"tres"}`},
		{"negative stage", "/projects/1/categories/7/assign-stage", `{"stageId":-1}`},
		{"empty body", "/projects/1/categories/7/assign-stage", ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := new(MockAssigner)
			w := do(assignRouter(t, m), http.MethodPut, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode(t, w)["error"])
			m.AssertNotCalled(t, "AssignStage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAssignStage_StageNotFoundListsAvailable(t *testing.T) {
	m := new(MockAssigner)
	m.On("AssignStage", mock.Anything, 1, 7, intPtr(99)).Return(nil, &apperr.StageNotFoundError{
		StageID:         99,
		ProjectID:       1,
		AvailableStages: []model.StageRef{{ID: 1, Name: "Diseño"}, {ID: 2, Name: "Entrega"}},
	})

	w := do(assignRouter(t, m), http.MethodPut, "/projects/1/categories/7/assign-stage", `{"stageId":99}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Etapa no encontrada", body["error"])
	assert.Equal(t, []any{float64(1), float64(2)}, body["availableStageIds"])
	assert.Len(t, body["availableStages"], 2)
}

func TestAssignStage_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperr.ErrCategoryNotFound, http.StatusNotFound},
		{&apperr.CrossProjectError{CategoryProjectID: 1, StageProjectID: 2}, http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		m := new(MockAssigner)
		m.On("AssignStage", mock.Anything, 1, 7, intPtr(3)).Return(nil, tc.err)

		w := do(assignRouter(t, m), http.MethodPut, "/projects/1/categories/7/assign-stage", `{"stageId":3}`)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}
}

func requestRouter(t *testing.T, m *MockRequestReader) *gin.Engine {
	r := gin.New()
	h := NewProjectRequestHandler(m, zaptest.NewLogger(t))
	r.GET("/project-requests/:id/categories", h.Categories)
	r.GET("/project-requests/:id/stages", h.Stages)
	return r
}

func TestProjectRequestCategories(t *testing.T) {
	m := new(MockRequestReader)
	m.On("Categories", mock.Anything, 4).Return([]model.CategoryView{
		{Category: model.Category{ID: 1, Name: "Maquinado"}, Progress: 67, Status: model.ProgressInProgress, Activities: []model.Activity{}},
	}, nil)

	w := do(requestRouter(t, m), http.MethodGet, "/project-requests/4/categories", "")

	assert.Equal(t, http.StatusOK, w.Code)
	cats := decode(t, w)["categories"].([]any)
	require.Len(t, cats, 1)
	assert.EqualValues(t, 67, cats[0].(map[string]any)["progress"])
}

func TestProjectRequestStages_Errors(t *testing.T) {
	m := new(MockRequestReader)
	m.On("Stages", mock.Anything, 4).Return(nil, apperr.ErrProjectRequestNotFound)
	m.On("Stages", mock.Anything, 5).Return(nil, errors.New("boom"))
	r := requestRouter(t, m)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/project-requests/4/stages", "").Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/project-requests/5/stages", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/project-requests/cuatro/stages", "").Code)
}

func TestActivityUpdateStatus(t *testing.T) {
	m := new(MockUpdater)
	m.On("UpdateStatus", mock.Anything, 3, model.ActivityCompleted).Return(&model.Activity{ID: 3, Status: model.ActivityCompleted}, nil)
	m.On("UpdateStatus", mock.Anything, 4, model.ActivityCompleted).Return(nil, apperr.ErrActivityNotFound)

	r := gin.New()
	h := NewActivityHandler(m, zaptest.NewLogger(t))
	r.PATCH("/activities/:activityId/status", h.UpdateStatus)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPatch, "/activities/3/status", `{"status":"completed"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPatch, "/activities/4/status", `{"status":"completed"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, "/activities/3/status", `{"status":"done"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, "/activities/3/status", `{}`).Code)
}

type stubStageReader struct {
	sp  *model.StageProgress
	err error
}

func (s stubStageReader) StageProgress(context.Context, int) (*model.StageProgress, error) {
	return s.sp, s.err
}

func TestStageProgress(t *testing.T) {
	r := gin.New()
	ok := NewStageHandler(stubStageReader{sp: &model.StageProgress{Stage: model.Stage{ID: 2}, Live: 60, Categories: []model.ProgressRow{}}}, zaptest.NewLogger(t))
	missing := NewStageHandler(stubStageReader{err: apperr.ErrStageNotFound}, zaptest.NewLogger(t))
	r.GET("/ok/:stageId", ok.Progress)
	r.GET("/missing/:stageId", missing.Progress)

	w := do(r, http.MethodGet, "/ok/2", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 60, decode(t, w)["liveProgress"])
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/missing/2", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/ok/0", "").Code)
}

func TestAdminHandlers(t *testing.T) {
	m := new(MockAdmin)
	m.On("RefreshAll", mock.Anything).Return(nil)
	m.On("ReplayEvent", mock.Anything, int64(5)).Return(nil)
	m.On("ReplayEvent", mock.Anything, int64(6)).Return(outbox.ErrEventNotFound)
	m.On("ReplayFailedEvents", mock.Anything, 100).Return(3, nil)
	m.On("ReplayFailedEvents", mock.Anything, 10).Return(1, nil)

	r := gin.New()
	h := NewAdminHandler(m, m, zaptest.NewLogger(t))
	r.POST("/admin/progress/refresh", h.RefreshProgress)
	r.POST("/admin/outbox/replay", h.ReplayEvent)
	r.POST("/admin/outbox/replay-failed", h.ReplayFailed)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/admin/progress/refresh", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/admin/outbox/replay?id=5", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/admin/outbox/replay?id=6", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/admin/outbox/replay", "").Code)

	w := do(r, http.MethodPost, "/admin/outbox/replay-failed", "")
	assert.EqualValues(t, 3, decode(t, w)["replayed"])
	w = do(r, http.MethodPost, "/admin/outbox/replay-failed?limit=10", "")
	assert.EqualValues(t, 1, decode(t, w)["replayed"])
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/admin/outbox/replay-failed?limit=0", "").Code)
}
