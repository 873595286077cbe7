package main

import (
	"os"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/fx"

	"automl-orchestrator/internal/config"
	"automl-orchestrator/internal/eventbus"
	"automl-orchestrator/internal/httpserver"
	"automl-orchestrator/internal/logger"
	"automl-orchestrator/internal/objectstore"
	"automl-orchestrator/internal/polling"
	"automl-orchestrator/internal/store"
	"automl-orchestrator/internal/telemetry"
	"automl-orchestrator/internal/trainingagent"
)

func newObjectStoreConfig(cfg *config.AppConfig) objectstore.Config {
	return objectstore.Config{
		Endpoint:  cfg.ObjectStoreEndpoint,
		AccessKey: cfg.ObjectStoreAccessKey,
		SecretKey: cfg.ObjectStoreSecretKey,
		UseSSL:    cfg.ObjectStoreUseSSL,
		Buckets:   cfg.ObjectStoreBuckets,
	}
}

func newWorkflowConfig(cfg *config.AppConfig) trainingagent.Config {
	bucket := "automl-artifacts"
	if len(cfg.ObjectStoreBuckets) > 0 {
		bucket = cfg.ObjectStoreBuckets[0]
	}
	return trainingagent.Config{
		BatchSize:      cfg.BatchSize,
		DefaultEpochs:  cfg.DefaultEpochs,
		DefaultLR:      cfg.DefaultLearningRate,
		HasAccelerator: cfg.HasAccelerator,
		Bucket:         bucket,
	}
}

// automaxprocs matters here specifically: this binary shells out to a
// training subprocess expected to use GOMAXPROCS-sized thread pools, unlike
// the other three agents which are mostly I/O bound.
func main() {
	zlog, err := logger.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}
	cfg := config.Load(zlog)

	app := fx.New(
		fx.Supply(zlog),
		fx.Supply(cfg),
		config.NamedValues(cfg, "trainingagent"),
		fx.Provide(newObjectStoreConfig, newWorkflowConfig),
		store.Module,
		objectstore.Module,
		eventbus.Module,
		fx.Provide(polling.NewRedisClient),
		telemetry.Module,
		trainingagent.Module,
		fx.Invoke(httpserver.Serve),
	)
	app.Run()
}
