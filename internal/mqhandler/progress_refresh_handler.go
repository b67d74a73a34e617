package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	mqcontracts "github.com/fosware/conecta-toolv1-sub004/contracts/mq"
	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
	"github.com/fosware/conecta-toolv1-sub004/pkg/util"
)

const (
	handlerName = "progress_refresh"
	maxRetries  = 5
)

// Reconciler is the part of the progress service the worker drives.
type Reconciler interface {
	Refresh(ctx context.Context) error
	RecomputeProjectStages(ctx context.Context, projectID int) error
	RecomputeStages(ctx context.Context, stageIDs []int) error
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, eventKey string) bool
	Release(ctx context.Context, handler, eventKey string)
}

type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, failedAt string) error
}

// ProgressRefreshHandler consumes progress.refresh_requested: full view
// refresh, then every stage of the project plus the stages the event names.
type ProgressRefreshHandler struct {
	reconciler   Reconciler
	deduper      Deduper
	retryCounter RetryCounter
	dlq          DLQPublisher
	logger       *zap.Logger
}

func NewProgressRefreshHandler(
	reconciler Reconciler,
	deduper Deduper,
	retryCounter RetryCounter,
	dlq DLQPublisher,
	logger *zap.Logger,
) *ProgressRefreshHandler {
	return &ProgressRefreshHandler{
		reconciler:   reconciler,
		deduper:      deduper,
		retryCounter: retryCounter,
		dlq:          dlq,
		logger:       logger,
	}
}

func eventKey(p mqcontracts.ProgressRefreshRequestedPayload) string {
	if p.RequestID != "" {
		return p.RequestID
	}
	return fmt.Sprintf("%s:%d:%d:%d", p.Reason, p.CategoryID, p.ActivityID, p.RequestedAt.UnixNano())
}

// Handle 返回 error 表示需要 nack 重投；不可重试的失败进入 DLQ 后返回 nil
func (h *ProgressRefreshHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.ProgressRefreshRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal progress refresh payload (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		h.toDLQ(ctx, log, raw, err)
		return nil
	}

	key := eventKey(p)
	log = log.With(
		zap.String("request_id", key),
		zap.String("reason", p.Reason),
		zap.Int("project_id", p.ProjectID),
		zap.Int("category_id", p.CategoryID),
	)

	if !h.deduper.AcquireOnce(ctx, handlerName, key) {
		return nil
	}

	err := h.process(ctx, p)
	retryKey := util.FormatRetryKey(handlerName, key)
	if err == nil {
		_ = h.retryCounter.Reset(ctx, retryKey)
		log.Info("Progress refresh event processed")
		return nil
	}

	h.deduper.Release(ctx, handlerName, key)

	retryable, errType := util.IsRetryableError(err)
	count, cerr := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if cerr != nil {
		log.Warn("Failed to get retry count, continuing anyway", zap.Error(cerr))
		count = 1
	}

	log.Error("Progress refresh event failed",
		zap.String("error_type", errType),
		zap.Bool("retryable", retryable),
		zap.Int64("retry_count", count),
		zap.Error(err),
	)

	if util.ShouldRetry(count, maxRetries, retryable) {
		return err
	}

	h.toDLQ(ctx, log, raw, err)
	_ = h.retryCounter.Reset(ctx, retryKey)
	return nil
}

func (h *ProgressRefreshHandler) process(ctx context.Context, p mqcontracts.ProgressRefreshRequestedPayload) error {
	if err := h.reconciler.Refresh(ctx); err != nil {
		return err
	}

	var errs []error
	if p.ProjectID > 0 {
		if err := h.reconciler.RecomputeProjectStages(ctx, p.ProjectID); err != nil {
			errs = append(errs, err)
		}
	}

	// 跨项目分配时旧/新阶段可能不在 ProjectID 下
	var named []int
	for _, id := range []*int{p.OldStageID, p.NewStageID} {
		if id != nil {
			named = append(named, *id)
		}
	}
	if len(named) > 0 {
		if err := h.reconciler.RecomputeStages(ctx, named); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *ProgressRefreshHandler) toDLQ(ctx context.Context, log *zap.Logger, raw []byte, cause error) {
	if h.dlq == nil {
		return
	}
	if err := h.dlq.PublishToDLQ(ctx, mqcontracts.RoutingKeyProgressRefresh, raw, cause.Error(), time.Now().UTC().Format(time.RFC3339)); err != nil {
		log.Error("Failed to publish to DLQ", zap.Error(err))
	}
}
