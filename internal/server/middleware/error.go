package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/pkg/api"
)

// ErrorHandler is the catch-all for errors a handler attached without
// writing a response itself.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		logger.Error("unhandled request error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)

		c.AbortWithStatusJSON(http.StatusInternalServerError, api.ErrorResponse{Error: "internal_error"})
	}
}
