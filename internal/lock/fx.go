package lock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/telcopulse/internal/clock"
	"github.com/smallbiznis/telcopulse/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("lock",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
)

// NewRedisClient returns nil when no redis address is configured.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Clock clock.Clock
	Log   *zap.Logger
	Redis *redis.Client `optional:"true"`
}

func NewLocker(p Params) Locker {
	if p.Redis != nil {
		p.Log.Info("refresh lock backend selected", zap.String("backend", "redis"))
		return NewRedisLocker(p.Redis)
	}
	p.Log.Info("refresh lock backend selected", zap.String("backend", "db"))
	return NewDBLocker(p.DB, p.Clock)
}
