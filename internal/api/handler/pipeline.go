package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/fitetl/internal/logger"
	"github.com/timmy/fitetl/internal/service"
)

// PipelineHandler triggers and reports pipeline runs.
type PipelineHandler struct {
	runner *service.Runner
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(runner *service.Runner) *PipelineHandler {
	return &PipelineHandler{runner: runner}
}

// StartRun handles POST /api/v1/pipeline/runs. It answers 202 with the batch id,
// or 409 while another run is active.
func (h *PipelineHandler) StartRun(c *gin.Context) {
	batchID, err := h.runner.Start(c.Request.Context())
	if errors.Is(err, service.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to start pipeline run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start pipeline run"})
		return
	}

	logger.CtxInfo(c.Request.Context(), "Started pipeline run %s", batchID)
	c.JSON(http.StatusAccepted, gin.H{"batch_id": batchID})
}

// Status handles GET /api/v1/pipeline/status
func (h *PipelineHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.runner.Status())
}
