package cli

import (
	"context"
	"time"

	"github.com/smallbiznis/telcopulse/internal/clock"
	"github.com/smallbiznis/telcopulse/internal/config"
	"github.com/smallbiznis/telcopulse/internal/insight"
	"github.com/smallbiznis/telcopulse/internal/lock"
	"github.com/smallbiznis/telcopulse/internal/migration"
	"github.com/smallbiznis/telcopulse/internal/observability"
	"github.com/smallbiznis/telcopulse/internal/quality"
	"github.com/smallbiznis/telcopulse/internal/reconcile"
	"github.com/smallbiznis/telcopulse/internal/refresh"
	"github.com/smallbiznis/telcopulse/internal/risk"
	"github.com/smallbiznis/telcopulse/internal/rollup"
	"github.com/smallbiznis/telcopulse/internal/source"
	"github.com/smallbiznis/telcopulse/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const stopTimeout = 15 * time.Second

// infrastructure is what every command needs to reach the database.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		migration.Module,
	)
}

// pipeline wires the refresh orchestrator and the read side.
func pipeline() fx.Option {
	return fx.Options(
		infrastructure(),
		source.Module,
		quality.Module,
		reconcile.Module,
		rollup.Module,
		risk.Module,
		lock.Module,
		refresh.Module,
		insight.Module,
	)
}

// quietLogs sends logs to stderr so stdout carries only command output.
func quietLogs() fx.Option {
	return fx.Options(
		fx.Decorate(func(cfg observability.Config) observability.Config {
			cfg.LogToStderr = true
			return cfg
		}),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: log.Named("fx")}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
	)
}

// startApp builds and starts a short-lived application for one command.
// The returned stop function is safe to defer.
func startApp(ctx context.Context, opts ...fx.Option) (func(), error) {
	app := fx.New(append([]fx.Option{quietLogs()}, opts...)...)
	if err := app.Err(); err != nil {
		return nil, err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return nil, err
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}, nil
}
