package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/config"
	"github.com/fosware/conecta-toolv1-sub004/internal/cache"
	"github.com/fosware/conecta-toolv1-sub004/internal/handler"
	"github.com/fosware/conecta-toolv1-sub004/internal/httpserver"
	"github.com/fosware/conecta-toolv1-sub004/internal/repository"
	"github.com/fosware/conecta-toolv1-sub004/internal/service"
	"github.com/fosware/conecta-toolv1-sub004/pkg/db"
	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
	"github.com/fosware/conecta-toolv1-sub004/pkg/mq"
	"github.com/fosware/conecta-toolv1-sub004/pkg/otel"
	"github.com/fosware/conecta-toolv1-sub004/pkg/outbox"
	redisclient "github.com/fosware/conecta-toolv1-sub004/pkg/redis"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	shutdownTracing, err := otel.Init(cfg.Otel, log)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
	} else {
		defer shutdownTracing()
	}

	// 2. Init DB
	dbConn, err := db.NewConnection(cfg.DB, cfg.Progress.SlowQueryThreshold, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	ready := []httpserver.ReadyCheck{{Name: "db", Ping: dbConn.Ping}}

	// 3. Init Redis cache (optional)
	var progressCache cache.ProgressCache = cache.NoopProgressCache{}
	if cfg.Redis.Addr != "" {
		rdb := redisclient.NewRedisClient(cfg.Redis)
		defer rdb.Close()
		progressCache = cache.NewRedisProgressCache(rdb, cfg.Progress.CacheTTL, log)
		ready = append(ready, httpserver.ReadyCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisclient.Ping(ctx, rdb) },
		})
	} else {
		log.Warn("Redis not configured, progress cache disabled")
	}

	// 4. Init RabbitMQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()
	ready = append(ready, httpserver.ReadyCheck{
		Name: "mq",
		Ping: func(context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("broker connection closed")
			}
			return nil
		},
	})

	// 5. Repositories
	outboxRepo := outbox.NewRepository(dbConn)
	categoryRepo := repository.NewCategoryRepository(dbConn, outboxRepo, log)
	stageRepo := repository.NewStageRepository(dbConn, log)
	activityRepo := repository.NewActivityRepository(dbConn, outboxRepo, log)
	viewRepo := repository.NewProgressViewRepository(dbConn, log)
	requestRepo := repository.NewProjectRequestRepository(dbConn, log)

	// 6. Services
	progressSvc := service.NewProgressService(viewRepo, stageRepo, progressCache, log)
	assignmentSvc := service.NewAssignmentService(categoryRepo, stageRepo, progressSvc, cfg.Progress, log)
	activitySvc := service.NewActivityService(activityRepo, categoryRepo, progressSvc, log)
	requestSvc := service.NewProjectRequestService(requestRepo, categoryRepo, stageRepo, activityRepo, progressSvc, log)
	replaySvc := outbox.NewReplayService(outboxRepo, publisher, log)

	// 7. Outbox dispatcher
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)
	go dispatcher.Start(ctx)

	// 8. Router
	if strings.EqualFold(os.Getenv("GIN_MODE"), gin.ReleaseMode) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpserver.NewRouter(httpserver.Handlers{
		Category:       handler.NewCategoryHandler(assignmentSvc, log),
		ProjectRequest: handler.NewProjectRequestHandler(requestSvc, log),
		Stage:          handler.NewStageHandler(progressSvc, log),
		Activity:       handler.NewActivityHandler(activitySvc, log),
		Admin:          handler.NewAdminHandler(progressSvc, replaySvc, log),
	}, httpserver.Options{
		JWTSecret:  cfg.JWT.Secret,
		CookieName: cfg.JWT.CookieName,
		Ready:      ready,
	}, log)

	addr := cfg.Server.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("API server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server start failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
