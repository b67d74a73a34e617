package model

import "time"

// 进度状态标签
const (
	ProgressPending    = "pending"
	ProgressInProgress = "in-progress"
	ProgressCompleted  = "completed"
)

// StatusCounts are the per-status activity counts of one category.
// Total counts active activities only, cancelled ones are excluded.
type StatusCounts struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Pending    int `json:"pending"`
	Cancelled  int `json:"cancelled"`
}

// ProgressRow is one row of the category progress view.
type ProgressRow struct {
	CategoryID  int          `json:"categoryId"`
	Progress    int          `json:"progress"`
	Status      string       `json:"status"`
	Counts      StatusCounts `json:"counts"`
	RefreshedAt time.Time    `json:"refreshedAt"`
}

// DefaultProgressRow is what consumers see for a category the view has no row for.
func DefaultProgressRow(categoryID int) ProgressRow {
	return ProgressRow{CategoryID: categoryID, Progress: 0, Status: ProgressPending}
}

// CategoryCounts pairs a category with its aggregated activity counts.
type CategoryCounts struct {
	CategoryID int
	Counts     StatusCounts
}

// StatusGroup is one (category, status) bucket of active activities.
// A category without activities comes back once with an empty Status and N 0.
type StatusGroup struct {
	CategoryID int
	Status     ActivityStatus
	N          int
}
