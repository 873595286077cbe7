package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"automl-orchestrator/internal/store"
)

// RequestLog mirrors DBLogMiddleware's audit-row-per-call shape but is
// scoped to non-GET, non-health routes so polling traffic never floods the
// audit trail. Logged against AgentGateway with no project association
// beyond what the path param, if any, resolves to.
func RequestLog(logs store.LogRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "GET" || c.FullPath() == "/health" {
			c.Next()
			return
		}

		var projectID *string
		if id := c.Param("id"); id != "" {
			projectID = &id
		}

		message := fmt.Sprintf("%s %s", c.Request.Method, c.FullPath())
		_ = logs.Append(c.Request.Context(), projectID, store.AgentGateway, store.LogLevelInfo, message)

		c.Next()
	}
}
