package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/internal/handler"
	"github.com/fosware/conecta-toolv1-sub004/pkg/otel"
	"github.com/fosware/conecta-toolv1-sub004/pkg/rbac"
)

// Pinger is anything /readyz has to check (db pool, redis, broker).
type Pinger func(ctx context.Context) error

type Handlers struct {
	Category       *handler.CategoryHandler
	ProjectRequest *handler.ProjectRequestHandler
	Stage          *handler.StageHandler
	Activity       *handler.ActivityHandler
	Admin          *handler.AdminHandler
}

// ReadyCheck is one dependency checked by /readyz.
type ReadyCheck struct {
	Name string
	Ping Pinger
}

type Options struct {
	JWTSecret  string
	CookieName string
	// Ready is checked in order; the first failure is reported.
	Ready []ReadyCheck
}

func NewRouter(h Handlers, opts Options, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(otel.GinMiddleware())
	r.Use(RequestLogger(logger))

	// Health endpoints
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	r.GET("/healthz", ok)
	r.HEAD("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", ok)
	r.HEAD("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for _, check := range opts.Ready {
			if err := check.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": check.Name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/")
	api.Use(AuthMiddleware(opts.JWTSecret, opts.CookieName, logger))

	api.PUT("/projects/:projectId/categories/:categoryId/assign-stage",
		RequirePermission(rbac.PermissionAssignStage), h.Category.AssignStage)
	api.GET("/project-requests/:id/categories",
		RequirePermission(rbac.PermissionReadProgress), h.ProjectRequest.Categories)
	api.GET("/project-requests/:id/stages",
		RequirePermission(rbac.PermissionReadProgress), h.ProjectRequest.Stages)
	api.GET("/stages/:stageId/progress",
		RequirePermission(rbac.PermissionReadProgress), h.Stage.Progress)
	api.PATCH("/activities/:activityId/status",
		RequirePermission(rbac.PermissionUpdateActivity), h.Activity.UpdateStatus)

	admin := api.Group("/admin")
	admin.POST("/progress/refresh", RequirePermission(rbac.PermissionRefreshProgress), h.Admin.RefreshProgress)
	admin.POST("/outbox/replay", RequirePermission(rbac.PermissionReplayOutbox), h.Admin.ReplayEvent)
	admin.POST("/outbox/replay-failed", RequirePermission(rbac.PermissionReplayOutbox), h.Admin.ReplayFailed)

	return r
}
