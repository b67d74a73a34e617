package model

import "time"

// ActivityStatus 活动状态
type ActivityStatus string

const (
	ActivityPending    ActivityStatus = "pending"
	ActivityInProgress ActivityStatus = "in_progress"
	ActivityCompleted  ActivityStatus = "completed"
	ActivityCancelled  ActivityStatus = "cancelled"
)

// Valid reports whether s is one of the four known statuses.
func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityPending, ActivityInProgress, ActivityCompleted, ActivityCancelled:
		return true
	}
	return false
}

type Activity struct {
	ID          int            `json:"id"`
	CategoryID  int            `json:"categoryId"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      ActivityStatus `json:"status"`
	IsActive    bool           `json:"isActive"`
	IsDeleted   bool           `json:"isDeleted"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
