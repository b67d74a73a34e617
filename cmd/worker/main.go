package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/config"
	mqcontracts "github.com/fosware/conecta-toolv1-sub004/contracts/mq"
	"github.com/fosware/conecta-toolv1-sub004/internal/cache"
	"github.com/fosware/conecta-toolv1-sub004/internal/mqhandler"
	"github.com/fosware/conecta-toolv1-sub004/internal/repository"
	"github.com/fosware/conecta-toolv1-sub004/internal/scheduler"
	"github.com/fosware/conecta-toolv1-sub004/internal/service"
	"github.com/fosware/conecta-toolv1-sub004/pkg/db"
	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
	"github.com/fosware/conecta-toolv1-sub004/pkg/mq"
	"github.com/fosware/conecta-toolv1-sub004/pkg/otel"
	redisclient "github.com/fosware/conecta-toolv1-sub004/pkg/redis"
	"github.com/fosware/conecta-toolv1-sub004/pkg/util"
)

const queueName = "progress.refresh_requested.q"

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	log.Info("Starting progress worker...")

	if shutdownTracing, err := otel.Init(cfg.Otel, log); err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
	} else {
		defer shutdownTracing()
	}

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, cfg.Progress.SlowQueryThreshold, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Init Redis（去重、重试计数、进度缓存）
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, time.Hour, log)
	retryCounter := util.NewRetryCounter(rdb, 24*time.Hour)

	// DLQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	dlqName, err := publisher.EnsureDLQ(mqcontracts.RoutingKeyProgressRefresh)
	if err != nil {
		log.Fatal("failed to declare dlq", zap.Error(err))
	}
	log.Info("Dead letter queue ready", zap.String("queue", dlqName))

	// Services
	viewRepo := repository.NewProgressViewRepository(dbConn, log)
	stageRepo := repository.NewStageRepository(dbConn, log)
	progressCache := cache.NewRedisProgressCache(rdb, cfg.Progress.CacheTTL, log)
	progressSvc := service.NewProgressService(viewRepo, stageRepo, progressCache, log)

	refreshHandler := mqhandler.NewProgressRefreshHandler(progressSvc, deduper, retryCounter, publisher, log)

	consumer, err := mq.NewConsumer(cfg.MQ.URL, queueName, mqcontracts.RoutingKeyProgressRefresh, log)
	if err != nil {
		log.Fatal("failed to init progress consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(refreshHandler.Handle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("Starting progress consumer", zap.String("queue", queueName))
		if err := consumer.StartConsuming(); err != nil {
			log.Error("progress consumer failed", zap.Error(err))
			stop()
		}
	}()

	// 定时全量对账
	reconciler, err := scheduler.NewReconciler(cfg.Progress.RefreshCron, 5*time.Minute, progressSvc.RefreshAll, log)
	if err != nil {
		log.Fatal("failed to init reconciler", zap.Error(err))
	}
	reconciler.Start(ctx)

	log.Info("Worker is ready to process messages", zap.String("refresh_cron", cfg.Progress.RefreshCron))

	<-ctx.Done()
	log.Info("Shutting down worker")

	reconciler.Stop()
	consumer.Stop()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Consumer did not drain in time")
	}
}
