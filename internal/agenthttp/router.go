// Package agenthttp builds the identical-shape HTTP surface spec.md §6
// gives the dataset, training, and evaluation agents: a manual /start
// trigger, a /status lookup, /polling/start|stop, and /polling/status.
// Each agent's internal/<agent>/httpapi.go is a thin wrapper calling
// NewRouter with its own workflow and runtime, keeping the gin setup
// itself in one place instead of tripling it.
package agenthttp

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"automl-orchestrator/internal/errkind"
	"automl-orchestrator/internal/polling"
	"automl-orchestrator/internal/store"
)

func errorStatus(kind errkind.Kind) int {
	switch kind {
	case errkind.NotFound:
		return http.StatusNotFound
	case errkind.Conflict:
		return http.StatusConflict
	case errkind.InputInvalid, errkind.PlanInvalid, errkind.BadDatasetLayout:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	if ek, ok := errkind.As(err); ok {
		c.JSON(errorStatus(ek.Kind), gin.H{"success": false, "kind": string(ek.Kind), "detail": ek.Detail})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "kind": "permanent", "detail": err.Error()})
}

type startRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
}

// NewRouter builds the gin.Engine for one agent binary. name is the path
// segment under /agents/ (e.g. "dataset", "training", "evaluation").
func NewRouter(name string, logs store.LogRepository, projects store.ProjectRepository, workflow polling.Workflow, runtime *polling.Runtime) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})

	group := r.Group("/agents/" + name)

	// POST /start runs the workflow synchronously for manual triggers and
	// tests (spec.md §6); production processing happens via polling.
	group.POST("/start", func(c *gin.Context) {
		var req startRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "kind": "input_invalid", "detail": err.Error()})
			return
		}
		if err := workflow.Run(c.Request.Context(), req.ProjectID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	group.GET("/status/:project_id", func(c *gin.Context) {
		projectID := c.Param("project_id")
		project, err := projects.Get(c.Request.Context(), projectID)
		if err != nil {
			respondError(c, err)
			return
		}
		entries, err := logs.ListByProject(c.Request.Context(), projectID, 50)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": string(project.Status), "logs": entries})
	})

	group.POST("/polling/start", func(c *gin.Context) {
		runtime.Start(context.Background())
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	group.POST("/polling/stop", func(c *gin.Context) {
		runtime.Stop()
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	group.GET("/polling/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"is_running":               runtime.IsRunning(),
			"poll_interval":            runtime.PollInterval().String(),
			"processed_projects_count": runtime.PersistedProcessedCount(c.Request.Context()),
		})
	})

	return r
}
