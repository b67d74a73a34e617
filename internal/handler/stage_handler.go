package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/internal/apperr"
	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
)

type StageHandler struct {
	reader StageProgressReader
	logger *zap.Logger
}

func NewStageHandler(reader StageProgressReader, logger *zap.Logger) *StageHandler {
	return &StageHandler{reader: reader, logger: logger}
}

// Progress GET /stages/:stageId/progress
func (h *StageHandler) Progress(c *gin.Context) {
	stageID, ok := positiveParam(c, "stageId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de etapa inválido"})
		return
	}

	sp, err := h.reader.StageProgress(c.Request.Context(), stageID)
	if err != nil {
		if errors.Is(err, apperr.ErrStageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Etapa no encontrada"})
			return
		}
		logger.WithTrace(c.Request.Context(), h.logger).Error("StageProgress: failed", zap.Int("stage_id", stageID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al obtener el progreso de la etapa"})
		return
	}
	c.JSON(http.StatusOK, sp)
}
