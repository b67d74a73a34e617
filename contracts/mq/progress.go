package mq

import "time"

// RoutingKeyProgressRefresh 派生进度需要重算
const RoutingKeyProgressRefresh = "progress.refresh_requested"

// ProgressRefreshRequestedPayload 分类换阶段或活动状态变化后写入 outbox 的事件
type ProgressRefreshRequestedPayload struct {
	RequestID   string    `json:"request_id"`
	Reason      string    `json:"reason"` // assign_stage / activity_status
	ProjectID   int       `json:"project_id"`
	CategoryID  int       `json:"category_id"`
	ActivityID  int       `json:"activity_id,omitempty"`
	OldStageID  *int      `json:"old_stage_id"`
	NewStageID  *int      `json:"new_stage_id"`
	TraceID     string    `json:"trace_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

const (
	ReasonAssignStage    = "assign_stage"
	ReasonActivityStatus = "activity_status"
)
