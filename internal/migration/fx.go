package migration

import (
	"github.com/smallbiznis/telcopulse/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		return Migrate(conn, cfg.DBAutoMigrate, log.Named("migration"))
	}),
)
