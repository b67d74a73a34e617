package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
	"github.com/fosware/conecta-toolv1-sub004/pkg/outbox"
)

type AdminHandler struct {
	refresher ProgressRefresher
	replayer  OutboxReplayer
	logger    *zap.Logger
}

func NewAdminHandler(refresher ProgressRefresher, replayer OutboxReplayer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{refresher: refresher, replayer: replayer, logger: logger}
}

// RefreshProgress POST /admin/progress/refresh
func (h *AdminHandler) RefreshProgress(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)
	start := time.Now()

	if err := h.refresher.RefreshAll(c.Request.Context()); err != nil {
		log.Error("RefreshProgress: failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al recalcular el progreso"})
		return
	}

	log.Info("RefreshProgress: success", zap.Duration("took", time.Since(start)))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReplayEvent POST /admin/outbox/replay?id=
func (h *AdminHandler) ReplayEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de evento inválido"})
		return
	}

	if err := h.replayer.ReplayEvent(c.Request.Context(), id); err != nil {
		if errors.Is(err, outbox.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Evento no encontrado"})
			return
		}
		logger.WithTrace(c.Request.Context(), h.logger).Error("ReplayEvent: failed", zap.Int64("event_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al reenviar el evento"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "eventId": id})
}

// ReplayFailed POST /admin/outbox/replay-failed?limit=
func (h *AdminHandler) ReplayFailed(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Límite inválido"})
			return
		}
		limit = n
	}

	count, err := h.replayer.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("ReplayFailed: failed", zap.Int("limit", limit), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al reenviar los eventos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "replayed": count})
}
