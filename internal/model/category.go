package model

import "time"

type Category struct {
	ID          int       `json:"id"`
	ProjectID   int       `json:"projectId"`
	StageID     *int      `json:"stageId"` // nil = sin etapa
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	IsDeleted   bool      `json:"isDeleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CategoryView is a category as returned by the project request endpoints.
type CategoryView struct {
	Category
	Progress   int          `json:"progress"`
	Status     string       `json:"status"`
	Counts     StatusCounts `json:"counts"`
	Activities []Activity   `json:"activities"`
}
