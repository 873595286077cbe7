package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"automl-orchestrator/internal/gateway/middleware"
	"automl-orchestrator/internal/store"
)

// NewRouter builds the gin.Engine exposing spec.md §6's gateway surface.
// The gateway performs no status transitions of its own (spec.md §4.7).
func NewRouter(h *Handlers, users store.UserRepository, projects store.ProjectRepository, logs store.LogRepository, jwtSecret []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", h.Health)

	auth := middleware.Auth(jwtSecret)
	ownerCheck := middleware.OwnerCheck(users, projects)
	requestLog := middleware.RequestLog(logs)

	api := r.Group("/api/ml")
	api.Use(auth, requestLog)
	{
		api.POST("/chat", h.Chat)
		api.GET("/projects", ownerCheck, h.ListProjects)

		scoped := api.Group("/projects/:id")
		scoped.Use(ownerCheck)
		{
			scoped.GET("", h.GetProject)
			scoped.GET("/logs", h.ProjectLogs)
			scoped.GET("/events", h.ProjectEvents)
			scoped.GET("/download", h.Download)
			scoped.POST("/test", h.TestPredict)
		}
	}

	admin := r.Group("/api/admin")
	admin.Use(auth, requestLog, requireAdmin)
	{
		admin.GET("/stats", h.AdminStats)
		admin.GET("/users", h.AdminUsers)
		admin.GET("/projects", h.AdminProjects)
		admin.GET("/logs", h.AdminLogs)
	}

	return r
}

func requireAdmin(c *gin.Context) {
	if !middleware.IsAdmin(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "kind": "conflict", "detail": "admin only"})
		return
	}
	c.Next()
}
