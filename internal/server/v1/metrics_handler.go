package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/internal/telemetry"
	"github.com/modelrelay/relay-api/pkg/api"
)

type MetricsHandler struct {
	logger  *zap.Logger
	service telemetry.Service
}

func NewMetricsHandler(logger *zap.Logger, service telemetry.Service) *MetricsHandler {
	return &MetricsHandler{logger: logger, service: service}
}

// Summary returns the aggregate over the telemetry log.
//
// GET /api/metrics
func (h *MetricsHandler) Summary(c *gin.Context) {
	s, err := h.service.Summary(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, api.MetricsResponse{
		Total:    s.Total,
		Failures: s.Failures,
		AvgMs:    s.AvgMS,
	})
}
