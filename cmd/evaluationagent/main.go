package main

import (
	"os"

	"go.uber.org/fx"

	"automl-orchestrator/internal/config"
	"automl-orchestrator/internal/eventbus"
	"automl-orchestrator/internal/evaluationagent"
	"automl-orchestrator/internal/httpserver"
	"automl-orchestrator/internal/logger"
	"automl-orchestrator/internal/objectstore"
	"automl-orchestrator/internal/polling"
	"automl-orchestrator/internal/store"
	"automl-orchestrator/internal/telemetry"
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

func newWorkflowConfig(cfg *config.AppConfig) evaluationagent.Config {
	bucket := "automl-artifacts"
	if len(cfg.ObjectStoreBuckets) > 0 {
		bucket = cfg.ObjectStoreBuckets[0]
	}
	return evaluationagent.Config{Bucket: bucket}
}

func main() {
	zlog, err := logger.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}
	cfg := config.Load(zlog)

	app := fx.New(
		fx.Supply(zlog),
		fx.Supply(cfg),
		config.NamedValues(cfg, "evaluationagent"),
		fx.Provide(newObjectStoreConfig, newWorkflowConfig),
		store.Module,
		objectstore.Module,
		eventbus.Module,
		fx.Provide(polling.NewRedisClient),
		telemetry.Module,
		evaluationagent.Module,
		fx.Invoke(httpserver.Serve),
	)
	app.Run()
}
