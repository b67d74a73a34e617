package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/pkg/metrics"
)

// ReplayService 提供重放 Outbox 事件的服务
type ReplayService struct {
	repo      Store
	publisher Publisher
	logger    *zap.Logger
}

// NewReplayService 创建新的 ReplayService
func NewReplayService(repo Store, publisher Publisher, logger *zap.Logger) *ReplayService {
	return &ReplayService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// ReplayEvent 重放指定的事件
func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) error {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}

	if err := publishEvent(ctx, s.publisher, event); err != nil {
		if markErr := s.repo.MarkAsFailed(ctx, eventID, 5); markErr != nil {
			return fmt.Errorf("failed to publish and mark as failed: %w (mark error: %v)", err, markErr)
		}
		return fmt.Errorf("failed to publish: %w", err)
	}

	if err := s.repo.MarkAsSent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}

	metrics.IncrementOutboxEvent(event.RoutingKey, "replayed")
	return nil
}

// ReplayFailedEvents 重放所有失败的事件，返回成功数量
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.repo.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed events: %w", err)
	}

	successCount := 0
	for _, event := range events {
		if err := s.ReplayEvent(ctx, event.ID); err != nil {
			s.logger.Warn("Failed to replay outbox event",
				zap.Int64("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}
		successCount++
	}

	return successCount, nil
}
