// Package apperr holds the domain errors shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"

	"github.com/fosware/conecta-toolv1-sub004/internal/model"
)

var (
	ErrCategoryNotFound       = errors.New("category not found")
	ErrStageNotFound          = errors.New("stage not found")
	ErrActivityNotFound       = errors.New("activity not found")
	ErrProjectRequestNotFound = errors.New("project request not found")
	ErrInvalidStatus          = errors.New("invalid activity status")
	ErrCrossProjectStage      = errors.New("stage belongs to another project")
)

// StageNotFoundError carries the stages that could have been targeted instead.
type StageNotFoundError struct {
	StageID         int
	ProjectID       int
	AvailableStages []model.StageRef
}

func (e *StageNotFoundError) Error() string {
	return fmt.Sprintf("stage %d not found in project %d", e.StageID, e.ProjectID)
}

func (e *StageNotFoundError) Unwrap() error {
	return ErrStageNotFound
}

// CrossProjectError is returned when strict project checks are enabled.
type CrossProjectError struct {
	CategoryProjectID int
	StageProjectID    int
}

func (e *CrossProjectError) Error() string {
	return fmt.Sprintf("stage of project %d cannot hold a category of project %d", e.StageProjectID, e.CategoryProjectID)
}

func (e *CrossProjectError) Unwrap() error {
	return ErrCrossProjectStage
}
