package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/internal/registry"
	"github.com/modelrelay/relay-api/internal/server/validator"
	"github.com/modelrelay/relay-api/pkg/api"
)

type ModelHandler struct {
	logger  *zap.Logger
	service registry.Service
}

func NewModelHandler(logger *zap.Logger, service registry.Service) *ModelHandler {
	return &ModelHandler{logger: logger, service: service}
}

// List returns every stored configuration with credentials redacted.
//
// GET /api/models
func (h *ModelHandler) List(c *gin.Context) {
	configs, err := h.service.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, configs)
}

// Upsert inserts or replaces a configuration.
//
// POST /api/models
func (h *ModelHandler) Upsert(c *gin.Context) {
	var req api.ModelUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("rejected model upsert", zap.Any("details", validator.ParseValidationError(err)))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "bad_request"})
		return
	}

	id, err := h.service.Upsert(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, registry.ErrEncryptionUnavailable) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "APP_ENC_KEY required"})
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, api.UpsertResponse{ID: id})
}

// Delete removes a configuration; unknown ids succeed.
//
// DELETE /api/models/:id
func (h *ModelHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
