package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/internal/apperr"
	"github.com/fosware/conecta-toolv1-sub004/internal/model"
	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
)

type ActivityHandler struct {
	updater ActivityUpdater
	logger  *zap.Logger
}

func NewActivityHandler(updater ActivityUpdater, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{updater: updater, logger: logger}
}

type updateStatusRequest struct {
	Status model.ActivityStatus `json:"status" binding:"required"`
}

// UpdateStatus PATCH /activities/:activityId/status
func (h *ActivityHandler) UpdateStatus(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)

	activityID, ok := positiveParam(c, "activityId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de actividad inválido"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		log.Warn("UpdateStatus: invalid body", zap.Int("activity_id", activityID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Estado de actividad inválido"})
		return
	}

	activity, err := h.updater.UpdateStatus(c.Request.Context(), activityID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Estado de actividad inválido"})
		case errors.Is(err, apperr.ErrActivityNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Actividad no encontrada"})
		default:
			log.Error("UpdateStatus: failed", zap.Int("activity_id", activityID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al actualizar la actividad"})
		}
		return
	}

	c.JSON(http.StatusOK, activity)
}
