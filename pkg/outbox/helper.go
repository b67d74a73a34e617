package outbox

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

// InsertEventInTx 序列化 payload 并在事务中写入 outbox
func InsertEventInTx(
	ctx context.Context,
	tx pgx.Tx,
	repo *Repository,
	aggregateType string,
	aggregateID *int64,
	routingKey string,
	payload interface{},
) (*Event, error) {
	event, err := NewEvent(aggregateType, aggregateID, routingKey, payload)
	if err != nil {
		return nil, err
	}
	if err := repo.InsertEvent(ctx, tx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// NewEvent 构造一个 pending 状态的事件
func NewEvent(aggregateType string, aggregateID *int64, routingKey string, payload interface{}) (*Event, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoutingKey:    routingKey,
		Payload:       payloadJSON,
		Status:        StatusPending,
	}, nil
}
