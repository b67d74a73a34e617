package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageNotFoundError_Unwraps(t *testing.T) {
	err := fmt.Errorf("assign: %w", &StageNotFoundError{StageID: 9, ProjectID: 1})
	assert.ErrorIs(t, err, ErrStageNotFound)

	var target *StageNotFoundError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, 9, target.StageID)
}

func TestCrossProjectError_Unwraps(t *testing.T) {
	err := &CrossProjectError{CategoryProjectID: 1, StageProjectID: 2}
	assert.ErrorIs(t, err, ErrCrossProjectStage)
	assert.Contains(t, err.Error(), "project 2")
}
