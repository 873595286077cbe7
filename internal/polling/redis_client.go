package polling

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RedisParams is the fx.In bundle NewRedisClient needs.
type RedisParams struct {
	fx.In

	RedisURL string `name:"redisURL"`
	Logger   *zap.Logger
}

// NewRedisClient connects to the single Redis instance backing the
// processed-count mirror, following crs-scheduler's internal/database.NewRedisClient
// minus the sentinel failover topology this pipeline doesn't need.
func NewRedisClient(p RedisParams) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: p.RedisURL})

	if err := client.Ping(context.Background()).Err(); err != nil {
		p.Logger.Error("failed to connect to redis", zap.Error(err))
		return nil, err
	}
	p.Logger.Info("connected to redis")
	return client, nil
}
