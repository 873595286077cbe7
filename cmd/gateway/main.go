package main

import (
	"os"

	"go.uber.org/fx"

	"automl-orchestrator/internal/config"
	"automl-orchestrator/internal/eventbus"
	"automl-orchestrator/internal/evaluationagent"
	"automl-orchestrator/internal/gateway"
	"automl-orchestrator/internal/httpserver"
	"automl-orchestrator/internal/llm"
	"automl-orchestrator/internal/logger"
	"automl-orchestrator/internal/objectstore"
	"automl-orchestrator/internal/planner"
	"automl-orchestrator/internal/store"
)

func newLLMConfig(cfg *config.AppConfig) llm.Config {
	return llm.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

func newObjectStoreConfig(cfg *config.AppConfig) objectstore.Config {
	return objectstore.Config{
		Endpoint:  cfg.ObjectStoreEndpoint,
		AccessKey: cfg.ObjectStoreAccessKey,
		SecretKey: cfg.ObjectStoreSecretKey,
		UseSSL:    cfg.ObjectStoreUseSSL,
		Buckets:   cfg.ObjectStoreBuckets,
	}
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
		config.NamedValues(cfg, "gateway"),
		fx.Provide(newLLMConfig, newObjectStoreConfig),
		fx.Provide(evaluationagent.NewEvaluator),
		store.Module,
		objectstore.Module,
		eventbus.Module,
		llm.Module,
		planner.Module,
		gateway.Module,
		fx.Invoke(httpserver.Serve),
	)
	app.Run()
}
