package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/internal/apperr"
	"github.com/fosware/conecta-toolv1-sub004/internal/model"
)

type ProjectRequestRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRequestRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRequestRepository {
	return &ProjectRequestRepository{db: db, logger: logger}
}

func (r *ProjectRequestRepository) FindByID(ctx context.Context, id int) (*model.ProjectRequest, error) {
	var pr model.ProjectRequest
	err := r.db.QueryRow(ctx, `
		SELECT id, title, client_id, is_deleted, created_at
		FROM project_requests
		WHERE id = $1 AND is_deleted = false
	`, id).Scan(&pr.ID, &pr.Title, &pr.ClientID, &pr.IsDeleted, &pr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrProjectRequestNotFound
		}
		r.logger.Error("Failed to find project request", zap.Int("project_request_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to find project request: %w", err)
	}
	return &pr, nil
}

// ListProjects 返回请求下的项目及其执行的合作公司
func (r *ProjectRequestRepository) ListProjects(ctx context.Context, requestID int) ([]model.Project, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.project_request_id, p.title, p.associate_company_id, COALESCE(ac.name, '')
		FROM projects p
		LEFT JOIN associate_companies ac ON ac.id = p.associate_company_id
		WHERE p.project_request_id = $1 AND p.is_deleted = false
		ORDER BY p.id
	`, requestID)
	if err != nil {
		r.logger.Error("Failed to list projects", zap.Int("project_request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.ProjectRequestID, &p.Title, &p.CompanyID, &p.CompanyName); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
