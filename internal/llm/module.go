package llm

import (
	"go.uber.org/fx"

	"automl-orchestrator/internal/llm/openai"
)

// NewProviderParams is the fx.In bundle NewProvider needs.
type NewProviderParams struct {
	fx.In

	Config Config
}

// NewProvider wires the OpenAI-compatible client as the Provider
// implementation. Out-of-pack LLM SDKs are not available here; an
// HTTP-based client is the only option any example repo demonstrates.
func NewProvider(p NewProviderParams) Provider {
	return openai.New(p.Config)
}

// Module provides a Provider to the fx graph.
var Module = fx.Options(fx.Provide(NewProvider))
