package main

import (
	"os"

	"go.uber.org/fx"

	"automl-orchestrator/internal/config"
	"automl-orchestrator/internal/httpserver"
	"automl-orchestrator/internal/llm"
	"automl-orchestrator/internal/logger"
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

func main() {
	zlog, err := logger.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}
	cfg := config.Load(zlog)

	app := fx.New(
		fx.Supply(zlog),
		fx.Supply(cfg),
		config.NamedValues(cfg, "planner"),
		fx.Provide(newLLMConfig),
		store.Module,
		llm.Module,
		planner.Module,
		fx.Invoke(httpserver.Serve),
	)
	app.Run()
}
