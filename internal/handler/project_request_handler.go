package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/internal/apperr"
	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
)

type ProjectRequestHandler struct {
	reader ProjectRequestReader
	logger *zap.Logger
}

func NewProjectRequestHandler(reader ProjectRequestReader, logger *zap.Logger) *ProjectRequestHandler {
	return &ProjectRequestHandler{reader: reader, logger: logger}
}

func (h *ProjectRequestHandler) requestID(c *gin.Context) (int, bool) {
	id, ok := positiveParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de solicitud inválido"})
	}
	return id, ok
}

func (h *ProjectRequestHandler) fail(c *gin.Context, op string, requestID int, err error) {
	if errors.Is(err, apperr.ErrProjectRequestNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Solicitud de proyecto no encontrada"})
		return
	}
	logger.WithTrace(c.Request.Context(), h.logger).Error(op+": failed",
		zap.Int("project_request_id", requestID),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al obtener los datos de la solicitud"})
}

// Categories GET /project-requests/:id/categories
func (h *ProjectRequestHandler) Categories(c *gin.Context) {
	requestID, ok := h.requestID(c)
	if !ok {
		return
	}

	categories, err := h.reader.Categories(c.Request.Context(), requestID)
	if err != nil {
		h.fail(c, "Categories", requestID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// Stages GET /project-requests/:id/stages
func (h *ProjectRequestHandler) Stages(c *gin.Context) {
	requestID, ok := h.requestID(c)
	if !ok {
		return
	}

	stages, err := h.reader.Stages(c.Request.Context(), requestID)
	if err != nil {
		h.fail(c, "Stages", requestID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}
