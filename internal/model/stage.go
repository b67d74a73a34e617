package model

import "time"

type Stage struct {
	ID          int       `json:"id"`
	ProjectID   int       `json:"projectId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	Progress    int       `json:"progress"`
	Status      string    `json:"status"`
	IsDeleted   bool      `json:"isDeleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StageRef is the short form listed in "stage not found" diagnostics.
type StageRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StageCategory is a category nested under a stage in read responses.
type StageCategory struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
}

// StageView is a stage as returned by the project request endpoints.
type StageView struct {
	Stage
	AssignedCompany string          `json:"assignedCompany"`
	Categories      []StageCategory `json:"categories"`
}

// StageProgress is a stage with the progress rows of the categories currently
// assigned to it.
type StageProgress struct {
	Stage      Stage         `json:"stage"`
	Live       int           `json:"liveProgress"`
	LiveStatus string        `json:"liveStatus"`
	Categories []ProgressRow `json:"categories"`
}
