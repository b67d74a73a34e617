package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	mqcontracts "github.com/fosware/conecta-toolv1-sub004/contracts/mq"
)

type fakeReconciler struct {
	refreshErr error
	refreshed  int
	projects   []int
	stages     [][]int
}

func (f *fakeReconciler) Refresh(context.Context) error {
	f.refreshed++
	return f.refreshErr
}

func (f *fakeReconciler) RecomputeProjectStages(_ context.Context, projectID int) error {
	f.projects = append(f.projects, projectID)
	return nil
}

func (f *fakeReconciler) RecomputeStages(_ context.Context, ids []int) error {
	f.stages = append(f.stages, ids)
	return nil
}

type fakeDeduper struct {
	seen     map[string]bool
	released []string
}

func (f *fakeDeduper) AcquireOnce(_ context.Context, handler, key string) bool {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	k := handler + ":" + key
	if f.seen[k] {
		return false
	}
	f.seen[k] = true
	return true
}

func (f *fakeDeduper) Release(_ context.Context, handler, key string) {
	delete(f.seen, handler+":"+key)
	f.released = append(f.released, key)
}

type fakeCounter struct {
	counts map[string]int64
}

func (f *fakeCounter) IncrementAndGet(_ context.Context, key string) (int64, error) {
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounter) Reset(_ context.Context, key string) error {
	delete(f.counts, key)
	return nil
}

type fakeDLQ struct {
	messages []string
}

func (f *fakeDLQ) PublishToDLQ(_ context.Context, _ string, _ []byte, originalError, _ string) error {
	f.messages = append(f.messages, originalError)
	return nil
}

type fixture struct {
	rec     *fakeReconciler
	dedup   *fakeDeduper
	counter *fakeCounter
	dlq     *fakeDLQ
	h       *ProgressRefreshHandler
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{rec: &fakeReconciler{}, dedup: &fakeDeduper{}, counter: &fakeCounter{}, dlq: &fakeDLQ{}}
	f.h = NewProgressRefreshHandler(f.rec, f.dedup, f.counter, f.dlq, zaptest.NewLogger(t))
	return f
}

func payload(t *testing.T, p mqcontracts.ProgressRefreshRequestedPayload) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return raw
}

func intPtr(v int) *int { return &v }

func TestHandle_RefreshesAndRecomputes(t *testing.T) {
	f := newFixture(t)
	raw := payload(t, mqcontracts.ProgressRefreshRequestedPayload{
		RequestID:  "r-1",
		ProjectID:  3,
		CategoryID: 7,
		OldStageID: intPtr(1),
		NewStageID: intPtr(2),
	})

	require.NoError(t, f.h.Handle(context.Background(), raw))
	assert.Equal(t, 1, f.rec.refreshed)
	assert.Equal(t, []int{3}, f.rec.projects)
	assert.Equal(t, [][]int{{1, 2}}, f.rec.stages)
}

func TestHandle_SkipsDuplicates(t *testing.T) {
	f := newFixture(t)
	raw := payload(t, mqcontracts.ProgressRefreshRequestedPayload{RequestID: "r-1", ProjectID: 3})

	require.NoError(t, f.h.Handle(context.Background(), raw))
	require.NoError(t, f.h.Handle(context.Background(), raw))
	assert.Equal(t, 1, f.rec.refreshed)
}

func TestHandle_InvalidJSONGoesToDLQ(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.h.Handle(context.Background(), json.RawMessage(`{nope`)))
	assert.Len(t, f.dlq.messages, 1)
	assert.Zero(t, f.rec.refreshed)
}

func TestHandle_RetryableErrorIsRequeuedThenDeadLettered(t *testing.T) {
	f := newFixture(t)
	f.rec.refreshErr = fmt.Errorf("refresh progress view: %w", context.DeadlineExceeded)
	raw := payload(t, mqcontracts.ProgressRefreshRequestedPayload{RequestID: "r-9", ProjectID: 3})

	for i := 0; i < maxRetries; i++ {
		assert.Error(t, f.h.Handle(context.Background(), raw), "attempt %d", i+1)
	}
	assert.Empty(t, f.dlq.messages)
	assert.Len(t, f.dedup.released, maxRetries)

	assert.NoError(t, f.h.Handle(context.Background(), raw))
	assert.Len(t, f.dlq.messages, 1)
	assert.Empty(t, f.counter.counts)
}

func TestHandle_NonRetryableErrorGoesStraightToDLQ(t *testing.T) {
	f := newFixture(t)
	f.rec.refreshErr = errors.New("view schema mismatch")
	raw := payload(t, mqcontracts.ProgressRefreshRequestedPayload{RequestID: "r-2"})

	assert.NoError(t, f.h.Handle(context.Background(), raw))
	assert.Equal(t, []string{"view schema mismatch"}, f.dlq.messages)
}
