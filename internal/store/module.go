package store

import "go.uber.org/fx"

// Module wires the database connection and every repository, mirroring
// crs-scheduler's repository.Module.
var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Provide(NewUserRepository),
	fx.Provide(NewProjectRepository),
	fx.Provide(NewDatasetRepository),
	fx.Provide(NewModelRepository),
	fx.Provide(NewLogRepository),
	fx.Provide(NewMessageRepository),
)
