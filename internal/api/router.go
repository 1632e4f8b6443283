package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/timmy/fitetl/internal/api/handler"
	"github.com/timmy/fitetl/internal/api/middleware"
	"github.com/timmy/fitetl/internal/logger"
	"github.com/timmy/fitetl/internal/service"
)

// RouterDeps are the services the admin API exposes.
type RouterDeps struct {
	Jobs   handler.JobLogReader
	Runner *service.Runner
	Ping   func(ctx context.Context) error
	Logger *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps RouterDeps, mode string) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(deps.Logger))

	healthHandler := handler.NewHealthHandler(deps.Ping)
	jobsHandler := handler.NewJobsHandler(deps.Jobs)
	pipelineHandler := handler.NewPipelineHandler(deps.Runner)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/jobs", jobsHandler.ListJobs)
		v1.GET("/jobs/:id", jobsHandler.GetJob)

		v1.POST("/pipeline/runs", pipelineHandler.StartRun)
		v1.GET("/pipeline/status", pipelineHandler.Status)
	}

	return r
}
