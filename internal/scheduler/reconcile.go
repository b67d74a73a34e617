// Package scheduler runs the periodic progress reconciliation in the worker.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/pkg/trace"
)

// Job is one reconciliation pass.
type Job func(ctx context.Context) error

// Reconciler triggers Job on a cron schedule. Overlapping runs are skipped.
type Reconciler struct {
	cron    *cron.Cron
	job     Job
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
}

// NewReconciler accepts standard five-field specs and descriptors such as "@every 10m".
func NewReconciler(schedule string, timeout time.Duration, job Job, logger *zap.Logger) (*Reconciler, error) {
	r := &Reconciler{
		job:     job,
		timeout: timeout,
		logger:  logger,
		ctx:     context.Background(),
	}
	r.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.ctx = ctx

	r.logger.Info("Starting progress reconciler", zap.Int("entries", len(r.cron.Entries())))
	r.cron.Start()
}

// Stop waits for a running pass to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	<-r.cron.Stop().Done()
	r.logger.Info("Progress reconciler stopped")
}

// RunNow executes one pass synchronously.
func (r *Reconciler) RunNow() error {
	r.mu.Lock()
	parent := r.ctx
	r.mu.Unlock()

	ctx := trace.WithContext(parent, trace.GenerateTraceID())
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	err := r.job(ctx)
	if err != nil {
		r.logger.Error("Progress reconciliation failed", zap.String("trace_id", trace.FromContext(ctx)), zap.Error(err))
		return err
	}
	r.logger.Info("Progress reconciliation done", zap.Duration("took", time.Since(start)))
	return nil
}

func (r *Reconciler) run() {
	_ = r.RunNow()
}
