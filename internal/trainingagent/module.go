package trainingagent

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

// TrainerParams carries the configured subprocess command by name.
type TrainerParams struct {
	fx.In

	Command string `name:"trainerCmd"`
	Logger  *zap.Logger
}

func NewTrainer(p TrainerParams) Trainer {
	return NewSubprocessTrainer(p.Command, p.Logger)
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

// NewRuntime builds the poll loop owning status = pending_training and
// starts/stops it alongside the process.
func NewRuntime(p RuntimeParams) *polling.Runtime {
	cfg := polling.Config{
		PollInterval: time.Duration(p.PollIntervalSeconds) * time.Second,
		BatchLimit:   p.BatchLimit,
	}
	runtime := polling.New(p.Logger, p.Projects, p.Workflow, store.StatusPendingTraining, cfg)
	runtime.SetTracer(p.Telemetry.Tracer(), telemetry.Training, "training")
	runtime.SetTracker(polling.NewProcessedCountTracker(p.Redis, "training"))
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
	fx.Provide(NewTrainer),
	fx.Provide(NewWorkflow),
	fx.Provide(NewRuntime),
	fx.Provide(NewRouter),
)
