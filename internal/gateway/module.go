package gateway

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"automl-orchestrator/internal/eventbus"
	"automl-orchestrator/internal/evaluationagent"
	"automl-orchestrator/internal/objectstore"
	"automl-orchestrator/internal/planner"
	"automl-orchestrator/internal/store"
)

// HandlersParams is the fx.In bundle NewHandlers needs.
type HandlersParams struct {
	fx.In

	Logger    *zap.Logger
	Users     store.UserRepository
	Projects  store.ProjectRepository
	Models    store.ModelRepository
	Logs      store.LogRepository
	Objects   objectstore.ObjectStore
	Workflow  *planner.Workflow
	Evaluator evaluationagent.Evaluator
	Cache     *StatusCache
}

func NewHandlers(p HandlersParams) *Handlers {
	return &Handlers{
		logger: p.Logger, users: p.Users, projects: p.Projects, models: p.Models,
		logs: p.Logs, objects: p.Objects, workflow: p.Workflow, evaluator: p.Evaluator,
		cache: p.Cache,
	}
}

// RouterParams is the fx.In bundle NewRouter needs, with the JWT signing
// secret supplied by name like the other agents' configured strings.
type RouterParams struct {
	fx.In

	Handlers  *Handlers
	Users     store.UserRepository
	Projects  store.ProjectRepository
	Logs      store.LogRepository
	JWTSecret string `name:"jwtSecret"`
}

func ProvideRouter(p RouterParams) *gin.Engine {
	return NewRouter(p.Handlers, p.Users, p.Projects, p.Logs, []byte(p.JWTSecret))
}

// CacheParams is the fx.In bundle NewCache needs.
type CacheParams struct {
	fx.In

	Logger    *zap.Logger
	Bus       *eventbus.Bus
	Lifecycle fx.Lifecycle
}

func NewCache(p CacheParams) *StatusCache {
	cache := NewStatusCache(p.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return cache.Start(ctx, p.Bus)
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return cache
}

var Module = fx.Options(
	fx.Provide(NewCache),
	fx.Provide(NewHandlers),
	fx.Provide(ProvideRouter),
)
