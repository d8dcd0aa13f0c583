package handlers

import (
	"context"
	"errors"
	"net/http"

	"drc_online/internal/models"
	"drc_online/internal/regression"
	"drc_online/internal/repository"
	"drc_online/internal/service"

	"github.com/gin-gonic/gin"
)

// trainRequest carries a named training run over (s21_avg, drc_evaluate)
// records.
type trainRequest struct {
	Name    string                  `json:"name" binding:"required"`
	Type    string                  `json:"type"`
	Dataset []models.TrainingRecord `json:"dataset" binding:"required"`
	Notes   string                  `json:"notes,omitempty"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// @Summary      List trained models
// @Tags         models
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "models"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/models [get]
// @Security     BearerAuth
func (h *Handler) listModels(c *gin.Context) {
	list, err := h.services.Models.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to list models", "models_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": list})
}

// @Summary      Train a regression model
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request  body  trainRequest  true  "training run"
// @Success      200  {object}  models.TrainedModel
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/models/train [post]
// @Security     BearerAuth
func (h *Handler) trainModel(c *gin.Context) {
	var req trainRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if req.Type == "" {
		req.Type = models.ModelLinear
	}
	m, err := h.services.Models.Train(c.Request.Context(), req.Name, req.Type, req.Dataset, req.Notes)
	if err != nil {
		var verr *regression.ValidationError
		if errors.As(err, &verr) ||
			errors.Is(err, service.ErrUnsupportedModelType) ||
			errors.Is(err, service.ErrDatasetTooSmall) ||
			errors.Is(err, service.ErrModelNameRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to train model", "model_train_failed", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) activateModel(c *gin.Context) {
	h.modelMutation(c, h.services.Models.Activate, "model_activate_failed")
}

func (h *Handler) deactivateModel(c *gin.Context) {
	h.modelMutation(c, h.services.Models.Deactivate, "model_deactivate_failed")
}

func (h *Handler) deleteModel(c *gin.Context) {
	h.modelMutation(c, h.services.Models.Delete, "model_delete_failed")
}

// @Summary      Update model notes
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        name     path  string        true  "model name"
// @Param        request  body  notesRequest  true  "notes text"
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/models/{name}/notes [put]
// @Security     BearerAuth
func (h *Handler) updateModelNotes(c *gin.Context) {
	var req notesRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	name := c.Param("name")
	if err := h.services.Models.UpdateNotes(c.Request.Context(), name, req.Notes); err != nil {
		h.modelError(c, name, err, "model_notes_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// modelMutation runs one name-keyed model operation with shared error
// mapping.
func (h *Handler) modelMutation(c *gin.Context, op func(ctx context.Context, name string) error, logKey string) {
	name := c.Param("name")
	if err := op(c.Request.Context(), name); err != nil {
		h.modelError(c, name, err, logKey)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "name": name})
}

func (h *Handler) modelError(c *gin.Context, name string, err error, logKey string) {
	if errors.Is(err, repository.ErrModelNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "model not found: " + name})
		return
	}
	h.logAndJSONError(c, http.StatusInternalServerError, "model operation failed", logKey, err, "name", name)
}
