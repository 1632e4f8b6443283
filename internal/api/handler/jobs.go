package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/fitetl/internal/domain"
	"github.com/timmy/fitetl/internal/logger"
	"github.com/timmy/fitetl/internal/repository"
	"gorm.io/gorm"
)

// JobLogReader is the read side of the job audit log.
type JobLogReader interface {
	GetByID(ctx context.Context, jobID string) (*domain.ETLJobLog, error)
	List(ctx context.Context, filter repository.JobLogFilter) ([]domain.ETLJobLog, int64, error)
}

// JobsHandler serves the job audit log.
type JobsHandler struct {
	jobs JobLogReader
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobs JobLogReader) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// ListJobsResponse is the paged job list.
type ListJobsResponse struct {
	Jobs   []domain.ETLJobLog `json:"jobs"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// ListJobs handles GET /api/v1/jobs?status=&table=&limit=&offset=
func (h *JobsHandler) ListJobs(c *gin.Context) {
	limit, err := intQuery(c, "limit", 50)
	if err != nil || limit < 1 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must not be negative"})
		return
	}

	filter := repository.JobLogFilter{
		TargetTable: c.Query("table"),
		Limit:       limit,
		Offset:      offset,
	}
	if s := c.Query("status"); s != "" {
		status := domain.JobStatus(s)
		if status != domain.JobStatusRunning && !status.Terminal() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + s})
			return
		}
		filter.Status = status
	}

	jobs, total, err := h.jobs.List(c.Request.Context(), filter)
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to list jobs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	if jobs == nil {
		jobs = []domain.ETLJobLog{}
	}

	c.JSON(http.StatusOK, ListJobsResponse{Jobs: jobs, Total: total, Limit: limit, Offset: offset})
}

// GetJob handles GET /api/v1/jobs/:id
func (h *JobsHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to get job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
