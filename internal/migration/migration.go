package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/telcopulse/internal/lock"
	"github.com/smallbiznis/telcopulse/internal/refresh"
	"github.com/smallbiznis/telcopulse/internal/risk"
	"github.com/smallbiznis/telcopulse/internal/rollup"
	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
	"github.com/smallbiznis/telcopulse/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table the service reads or writes, source tables first.
func Models() []any {
	return []any{
		&sourcedomain.Customer{},
		&sourcedomain.Plan{},
		&sourcedomain.SimConnection{},
		&sourcedomain.FiberConnection{},
		&sourcedomain.Payment{},
		&rollup.MonthlyRevenueFact{},
		&risk.CustomerRiskFlag{},
		&refresh.Run{},
		&lock.PipelineLock{},
	}
}

// Migrate brings the schema up to date. Postgres uses the embedded SQL
// migrations; other dialects, or autoMigrate, fall back to gorm AutoMigrate.
func Migrate(conn *gorm.DB, autoMigrate bool, log *zap.Logger) error {
	if db.IsPostgres(conn) && !autoMigrate {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := RunMigrations(sqlDB); err != nil {
			return err
		}
		log.Info("schema migrated", zap.String("mode", "sql"))
		return nil
	}

	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("schema migrated", zap.String("mode", "auto"), zap.String("dialect", conn.Dialector.Name()))
	return nil
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Close would also close the shared *sql.DB.

	return nil
}
