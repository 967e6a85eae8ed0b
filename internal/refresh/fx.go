package refresh

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telcopulse/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("refresh",
	fx.Provide(ProvideConfig),
	fx.Provide(NewNode),
	fx.Provide(NewRunStore),
	fx.Provide(New),
)

// SchedulerModule runs the orchestrator on its interval for the life of the app.
var SchedulerModule = fx.Module("refresh.scheduler",
	fx.Invoke(startScheduler),
)

// NewNode builds the run ID generator for this process.
func NewNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.Refresh.NodeID)
}

func startScheduler(lc fx.Lifecycle, cfg config.Config, o *Orchestrator, log *zap.Logger) {
	if !cfg.Refresh.Schedule {
		log.Info("refresh scheduler disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("refresh scheduler starting",
				zap.String("pipeline", o.Config().Pipeline),
				zap.Duration("interval", o.Config().Interval),
			)
			go func() {
				defer close(done)
				o.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
