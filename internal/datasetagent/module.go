package datasetagent

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"automl-orchestrator/internal/polling"
	"automl-orchestrator/internal/store"
	"automl-orchestrator/internal/telemetry"
)

// SourceParams carries the configured search endpoint by name so this
// package doesn't depend on internal/config directly.
type SourceParams struct {
	fx.In

	SearchEndpoint string `name:"kaggleSearchEndpoint"`
}

func NewSource(p SourceParams) DatasetSource {
	return NewKaggleSource(p.SearchEndpoint)
}

// RuntimeParams is the fx.In bundle NewRuntime needs.
type RuntimeParams struct {
	fx.In

	Logger              *zap.Logger
	Projects            store.ProjectRepository
	Workflow            *Workflow
	Telemetry           telemetry.Telemetry
	Redis               *redis.Client
	Lifecycle           fx.Lifecycle
	PollIntervalSeconds int `name:"pollIntervalSeconds"`
	BatchLimit          int `name:"batchLimit"`
}

// NewRuntime builds the poll loop owning status = pending_dataset and
// starts/stops it alongside the process (spec.md §5's "must be created at
// startup and torn down on shutdown").
func NewRuntime(p RuntimeParams) *polling.Runtime {
	cfg := polling.Config{
		PollInterval: time.Duration(p.PollIntervalSeconds) * time.Second,
		BatchLimit:   p.BatchLimit,
	}
	runtime := polling.New(p.Logger, p.Projects, p.Workflow, store.StatusPendingDataset, cfg)
	runtime.SetTracer(p.Telemetry.Tracer(), telemetry.DatasetDownload, "dataset")
	runtime.SetTracker(polling.NewProcessedCountTracker(p.Redis, "dataset"))
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runtime.Start(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			runtime.Stop()
			return nil
		},
	})
	return runtime
}

var Module = fx.Options(
	fx.Provide(NewSource),
	fx.Provide(NewWorkflow),
	fx.Provide(NewRuntime),
	fx.Provide(NewRouter),
)
