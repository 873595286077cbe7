package planner

import "go.uber.org/fx"

var Module = fx.Options(
	fx.Provide(NewWorkflow),
	fx.Provide(NewRouter),
)
