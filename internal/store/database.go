package store

import (
	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Params is the fx.In bundle NewDB needs, mirroring crs-gateway's
// internal/db.Params.
type Params struct {
	fx.In

	DatabaseURL string `name:"databaseURL"`
}

// NewDB opens the shared Postgres connection and migrates the schema this
// process depends on. Every cmd/* binary runs the same migration so that
// whichever agent starts first provisions the tables.
func NewDB(p Params) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(p.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&User{},
		&Project{},
		&Dataset{},
		&Model{},
		&AgentLog{},
		&Message{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
