package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fosware/conecta-toolv1-sub004/internal/apperr"
	"github.com/fosware/conecta-toolv1-sub004/pkg/logger"
)

type CategoryHandler struct {
	assigner StageAssigner
	logger   *zap.Logger
}

func NewCategoryHandler(assigner StageAssigner, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{assigner: assigner, logger: logger}
}

type assignStageRequest struct {
	StageID *int `json:"stageId"`
}

// AssignStage PUT /projects/:projectId/categories/:categoryId/assign-stage
func (h *CategoryHandler) AssignStage(c *gin.Context) {
	log := logger.WithTrace(c.Request.Context(), h.logger)

	projectID, ok := positiveParam(c, "projectId")
	if !ok {
		log.Warn("AssignStage: invalid project id", zap.String("project_id", c.Param("projectId")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de proyecto inválido"})
		return
	}
	categoryID, ok := positiveParam(c, "categoryId")
	if !ok {
		log.Warn("AssignStage: invalid category id", zap.String("category_id", c.Param("categoryId")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de categoría inválido"})
		return
	}

	var req assignStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("AssignStage: invalid body", zap.Int("category_id", categoryID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "El campo stageId debe ser un número o null"})
		return
	}
	if req.StageID != nil && *req.StageID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de etapa inválido"})
		return
	}

	log.Info("AssignStage request received",
		zap.Int("project_id", projectID),
		zap.Int("category_id", categoryID),
		zap.Any("stage_id", req.StageID),
	)

	category, err := h.assigner.AssignStage(c.Request.Context(), projectID, categoryID, req.StageID)
	if err != nil {
		var notFound *apperr.StageNotFoundError
		var crossProject *apperr.CrossProjectError
		switch {
		case errors.Is(err, apperr.ErrCategoryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Categoría no encontrada"})
		case errors.As(err, &notFound):
			ids := make([]int, len(notFound.AvailableStages))
			for i, s := range notFound.AvailableStages {
				ids[i] = s.ID
			}
			c.JSON(http.StatusNotFound, gin.H{
				"error":             "Etapa no encontrada",
				"stageId":           notFound.StageID,
				"projectId":         notFound.ProjectID,
				"availableStageIds": ids,
				"availableStages":   notFound.AvailableStages,
			})
		case errors.As(err, &crossProject):
			c.JSON(http.StatusConflict, gin.H{
				"error":             "La etapa pertenece a otro proyecto",
				"categoryProjectId": crossProject.CategoryProjectID,
				"stageProjectId":    crossProject.StageProjectID,
			})
		default:
			log.Error("AssignStage: failed",
				zap.Int("project_id", projectID),
				zap.Int("category_id", categoryID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al asignar la categoría a la etapa"})
		}
		return
	}

	c.JSON(http.StatusOK, category)
}
