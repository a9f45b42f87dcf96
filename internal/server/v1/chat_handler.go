package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/internal/relay"
	"github.com/modelrelay/relay-api/internal/server/validator"
	"github.com/modelrelay/relay-api/pkg/api"
)

type ChatHandler struct {
	logger  *zap.Logger
	service relay.Service
}

func NewChatHandler(logger *zap.Logger, service relay.Service) *ChatHandler {
	return &ChatHandler{logger: logger, service: service}
}

// Relay forwards a chat completion to the effective upstream.
//
// POST /api/chat
func (h *ChatHandler) Relay(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("rejected chat request", zap.Any("details", validator.ParseValidationError(err)))
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "bad_request"})
		return
	}

	out, err := h.service.Relay(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if out.Streaming {
		h.stream(c, out.Chunks)
		return
	}

	c.Data(out.Status, "application/json", out.Body)
}

func (h *ChatHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, relay.ErrBadRequest) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "bad_request"})
		return
	}

	var te *relay.TransportError
	if errors.As(err, &te) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "upstream_error",
			"message": te.Err.Error(),
		})
		return
	}

	_ = c.Error(err)
}

// stream forwards upstream bytes as they arrive. The payload is passed
// through unmodified; only transport headers are set here.
func (h *ChatHandler) stream(c *gin.Context, chunks <-chan relay.Chunk) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		chunk, ok := <-chunks
		if !ok {
			return false
		}
		if chunk.Err != nil {
			// The status line is already out; all that is left is to stop.
			h.logger.Warn("stream aborted", zap.Error(chunk.Err))
			return false
		}
		_, err := w.Write(chunk.Data)
		return err == nil
	})
}
