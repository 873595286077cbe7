package planner

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"automl-orchestrator/internal/errkind"
)

type handleMessageRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	SessionID   string `json:"session_id"`
	MessageText string `json:"message_text" binding:"required"`
}

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

// NewRouter builds the planner's HTTP surface (spec.md §6): a single
// handle_message endpoint, shaped differently from the other three
// agents' generic /start since the planner's input is free-text, not a
// project id.
func NewRouter(workflow *Workflow) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})

	r.POST("/agents/planner/handle_message", func(c *gin.Context) {
		var req handleMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "kind": "input_invalid", "detail": err.Error()})
			return
		}

		plan, projectID, err := workflow.Handle(c.Request.Context(), req.UserID, req.MessageText)
		if err != nil {
			if ek, ok := errkind.As(err); ok {
				c.JSON(errorStatus(ek.Kind), gin.H{"success": false, "kind": string(ek.Kind), "detail": ek.Detail})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "kind": "permanent", "detail": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "project_id": projectID, "plan": plan})
	})

	return r
}
