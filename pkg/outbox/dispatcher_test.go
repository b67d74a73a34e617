package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/fosware/conecta-toolv1-sub004/pkg/trace"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Event), args.Error(1)
}

func (m *MockStore) GetFailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Event), args.Error(1)
}

func (m *MockStore) GetEventByID(ctx context.Context, eventID int64) (*Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Event), args.Error(1)
}

func (m *MockStore) MarkAsSent(ctx context.Context, eventID int64) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockStore) MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error {
	return m.Called(ctx, eventID, maxRetries).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	return m.Called(ctx, routingKey, payload).Error(0)
}

func event(id int64, payload string) *Event {
	return &Event{ID: id, RoutingKey: "progress.refresh_requested", Payload: json.RawMessage(payload), Status: StatusPending}
}

func TestProcessPendingEvents_PublishesAndMarksSent(t *testing.T) {
	store := new(MockStore)
	pub := new(MockPublisher)
	d := NewDispatcher(store, pub, zaptest.NewLogger(t)).WithBatchSize(10)

	store.On("GetPendingEvents", mock.Anything, 10).Return([]*Event{event(1, `{"trace_id":"t-1"}`)}, nil)
	pub.On("PublishWithContext", mock.MatchedBy(func(ctx context.Context) bool {
		return trace.FromContext(ctx) == "t-1"
	}), "progress.refresh_requested", mock.Anything).Return(nil)
	store.On("MarkAsSent", mock.Anything, int64(1)).Return(nil)

	assert.Equal(t, 1, d.ProcessPendingEvents(context.Background()))
	store.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestProcessPendingEvents_MarksFailedOnPublishError(t *testing.T) {
	store := new(MockStore)
	pub := new(MockPublisher)
	d := NewDispatcher(store, pub, zaptest.NewLogger(t)).WithMaxRetries(3)

	store.On("GetPendingEvents", mock.Anything, 100).Return([]*Event{event(7, `{}`)}, nil)
	pub.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker gone"))
	store.On("MarkAsFailed", mock.Anything, int64(7), 3).Return(nil)

	assert.Zero(t, d.ProcessPendingEvents(context.Background()))
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "MarkAsSent", mock.Anything, mock.Anything)
}

func TestProcessPendingEvents_RejectsInvalidPayload(t *testing.T) {
	store := new(MockStore)
	pub := new(MockPublisher)
	d := NewDispatcher(store, pub, zaptest.NewLogger(t))

	store.On("GetPendingEvents", mock.Anything, 100).Return([]*Event{event(2, `{not json`)}, nil)
	store.On("MarkAsFailed", mock.Anything, int64(2), 5).Return(nil)

	assert.Zero(t, d.ProcessPendingEvents(context.Background()))
	pub.AssertNotCalled(t, "PublishWithContext", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcherStart_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := new(MockStore)
	store.On("GetPendingEvents", mock.Anything, 100).Return(nil, nil)
	d := NewDispatcher(store, new(MockPublisher), zaptest.NewLogger(t)).WithInterval(5 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestReplayFailedEvents_CountsSuccesses(t *testing.T) {
	store := new(MockStore)
	pub := new(MockPublisher)
	svc := NewReplayService(store, pub, zaptest.NewLogger(t))

	ok, bad := event(1, `{}`), event(2, `{}`)
	bad.RoutingKey = "broken"
	store.On("GetFailedEvents", mock.Anything, 50).Return([]*Event{ok, bad}, nil)
	store.On("GetEventByID", mock.Anything, int64(1)).Return(ok, nil)
	store.On("GetEventByID", mock.Anything, int64(2)).Return(bad, nil)
	pub.On("PublishWithContext", mock.Anything, "progress.refresh_requested", mock.Anything).Return(nil)
	pub.On("PublishWithContext", mock.Anything, "broken", mock.Anything).Return(errors.New("nope"))
	store.On("MarkAsSent", mock.Anything, int64(1)).Return(nil)
	store.On("MarkAsFailed", mock.Anything, int64(2), 5).Return(nil)

	n, err := svc.ReplayFailedEvents(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReplayEvent_NotFound(t *testing.T) {
	store := new(MockStore)
	store.On("GetEventByID", mock.Anything, int64(9)).Return(nil, ErrEventNotFound)
	svc := NewReplayService(store, new(MockPublisher), zaptest.NewLogger(t))

	err := svc.ReplayEvent(context.Background(), 9)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestNextAttempt(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	status, next := nextAttempt(2, 5, now)
	assert.Equal(t, StatusPending, status)
	require.NotNil(t, next)
	assert.Equal(t, now.Add(10*time.Second), *next)

	status, next = nextAttempt(5, 5, now)
	assert.Equal(t, StatusFailed, status)
	assert.Nil(t, next)
}

func TestNewEvent(t *testing.T) {
	id := int64(3)
	e, err := NewEvent("category", &id, "progress.refresh_requested", map[string]int{"category_id": 3})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, e.Status)
	assert.JSONEq(t, `{"category_id":3}`, string(e.Payload))
}
