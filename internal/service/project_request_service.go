package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/internal/model"
)

// ProjectRequestService serves the read views spanning every project of a request.
type ProjectRequestService struct {
	requests   ProjectRequestStore
	categories CategoryStore
	stages     StageStore
	activities ActivityStore
	progress   *ProgressService
	logger     *zap.Logger
}

func NewProjectRequestService(
	requests ProjectRequestStore,
	categories CategoryStore,
	stages StageStore,
	activities ActivityStore,
	progress *ProgressService,
	logger *zap.Logger,
) *ProjectRequestService {
	return &ProjectRequestService{
		requests:   requests,
		categories: categories,
		stages:     stages,
		activities: activities,
		progress:   progress,
		logger:     logger,
	}
}

func (s *ProjectRequestService) projects(ctx context.Context, requestID int) ([]model.Project, []int, error) {
	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		return nil, nil, err
	}

	projects, err := s.requests.ListProjects(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]int, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	return projects, ids, nil
}

func categoryIDs(categories []model.Category) []int {
	ids := make([]int, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}
	return ids
}

// Categories returns every category of the request with its activities and
// progress. Activities are loaded in one query for all categories.
func (s *ProjectRequestService) Categories(ctx context.Context, requestID int) ([]model.CategoryView, error) {
	_, projectIDs, err := s.projects(ctx, requestID)
	if err != nil {
		return nil, err
	}

	views := []model.CategoryView{}
	if len(projectIDs) == 0 {
		return views, nil
	}

	categories, err := s.categories.ListByProjects(ctx, projectIDs)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return views, nil
	}

	ids := categoryIDs(categories)
	activities, err := s.activities.ListByCategories(ctx, ids)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[int][]model.Activity, len(categories))
	for _, a := range activities {
		byCategory[a.CategoryID] = append(byCategory[a.CategoryID], a)
	}

	rows, err := s.progress.QueryByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, c := range categories {
		row := rows[c.ID]
		acts := byCategory[c.ID]
		if acts == nil {
			acts = []model.Activity{}
		}
		views = append(views, model.CategoryView{
			Category:   c,
			Progress:   row.Progress,
			Status:     row.Status,
			Counts:     row.Counts,
			Activities: acts,
		})
	}

	s.logger.Debug("Project request categories loaded",
		zap.Int("project_request_id", requestID),
		zap.Int("categories", len(views)),
	)
	return views, nil
}

// Stages returns every stage of the request with its stored progress, the
// executing company and the categories currently assigned to it.
func (s *ProjectRequestService) Stages(ctx context.Context, requestID int) ([]model.StageView, error) {
	projects, projectIDs, err := s.projects(ctx, requestID)
	if err != nil {
		return nil, err
	}

	views := []model.StageView{}
	if len(projectIDs) == 0 {
		return views, nil
	}

	stages, err := s.stages.ListByProjects(ctx, projectIDs)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return views, nil
	}

	categories, err := s.categories.ListByProjects(ctx, projectIDs)
	if err != nil {
		return nil, err
	}

	rows, err := s.progress.QueryByIDs(ctx, categoryIDs(categories))
	if err != nil {
		return nil, err
	}

	byStage := make(map[int][]model.StageCategory)
	for _, c := range categories {
		if c.StageID == nil {
			continue
		}
		row := rows[c.ID]
		byStage[*c.StageID] = append(byStage[*c.StageID], model.StageCategory{
			ID:       c.ID,
			Name:     c.Name,
			Progress: row.Progress,
			Status:   row.Status,
		})
	}

	company := make(map[int]string, len(projects))
	for _, p := range projects {
		company[p.ID] = p.CompanyName
	}

	for _, st := range stages {
		cats := byStage[st.ID]
		if cats == nil {
			cats = []model.StageCategory{}
		}
		views = append(views, model.StageView{
			Stage:           st,
			AssignedCompany: company[st.ProjectID],
			Categories:      cats,
		})
	}
	return views, nil
}
