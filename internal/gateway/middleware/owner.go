package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"automl-orchestrator/internal/errkind"
	"automl-orchestrator/internal/store"
)

// resolvedUserKey stashes the resolved User row so downstream handlers
// never need to look it up again, generalizing db_message.go's
// "stash a message id in the request context" pattern to
// "stash the resolved caller identity."
const resolvedUserKey = "resolvedUser"

// OwnerCheck resolves the caller's User row and, for routes with a
// project :id param, verifies project.UserID matches unless the caller is
// an admin. Aborts with 403 on mismatch, 404 if the project doesn't
// exist, 500 on an unexpected store failure.
func OwnerCheck(users store.UserRepository, projects store.ProjectRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		externalAuthID := ExternalAuthID(c)
		user, err := users.GetOrCreate(c.Request.Context(), externalAuthID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve caller"})
			return
		}
		c.Set(resolvedUserKey, user)

		projectID := c.Param("id")
		if projectID == "" {
			c.Next()
			return
		}

		project, err := projects.Get(c.Request.Context(), projectID)
		if err != nil {
			if ek, ok := errkind.As(err); ok && ek.Kind == errkind.NotFound {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "project not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load project"})
			return
		}

		if project.UserID != user.ID && !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not the project owner"})
			return
		}

		c.Set("project", project)
		c.Next()
	}
}

// ResolvedUser returns the User row OwnerCheck resolved for this request.
func ResolvedUser(c *gin.Context) *store.User {
	v, _ := c.Get(resolvedUserKey)
	u, _ := v.(*store.User)
	return u
}

// ResolvedProject returns the Project row OwnerCheck loaded for this
// request, if the route had a project :id param.
func ResolvedProject(c *gin.Context) *store.Project {
	v, _ := c.Get("project")
	p, _ := v.(*store.Project)
	return p
}
