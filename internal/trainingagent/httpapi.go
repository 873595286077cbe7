package trainingagent

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"automl-orchestrator/internal/agenthttp"
	"automl-orchestrator/internal/polling"
	"automl-orchestrator/internal/store"
)

// RouterParams is the fx.In bundle NewRouter needs.
type RouterParams struct {
	fx.In

	Projects store.ProjectRepository
	Logs     store.LogRepository
	Workflow *Workflow
	Runtime  *polling.Runtime
}

// NewRouter builds this agent's HTTP surface (spec.md §6).
func NewRouter(p RouterParams) *gin.Engine {
	return agenthttp.NewRouter("training", p.Logs, p.Projects, p.Workflow, p.Runtime)
}
