package refresh

import (
	"context"
	"time"

	obslogger "github.com/smallbiznis/telcopulse/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/telcopulse/internal/observability/metrics"
	qualitydomain "github.com/smallbiznis/telcopulse/internal/quality/domain"
	"go.uber.org/zap"
)

const maxLoggedIDs = 10

func (o *Orchestrator) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, o.log)
}

func (o *Orchestrator) logRunStart(ctx context.Context, result *RunResult) {
	o.logger(ctx).Info("refresh.run.start",
		zap.String("trigger", result.Trigger),
		zap.Duration("lock_wait", o.cfg.LockWait),
		zap.Bool("normalize", o.cfg.Normalize),
	)
}

func (o *Orchestrator) logRunFinish(ctx context.Context, run *runState) {
	result := run.result
	fields := []zap.Field{
		zap.String("status", string(result.Status)),
		zap.String("last_state", string(result.LastState)),
		zap.Int64("duration_ms", result.Duration.Milliseconds()),
		zap.Int("finding_count", result.Report.FindingCount()),
		zap.Int("reconciled_count", len(result.Reconciled)),
		zap.Int("normalized_count", len(result.Normalized)),
		zap.Any("rows_replaced", result.Rows),
		zap.Int("error_count", run.errorCount),
	}
	log := o.logger(ctx)
	if result.Err != nil {
		log.Warn("refresh.run.finish", append(fields, zap.Error(result.Err))...)
		return
	}
	log.Info("refresh.run.finish", fields...)
}

func (o *Orchestrator) logStageStart(ctx context.Context, state State) {
	obslogger.WithStage(o.logger(ctx), string(state)).Debug("refresh.stage.start")
}

func (o *Orchestrator) logStageFinish(ctx context.Context, state State, elapsed time.Duration, err error) {
	obslogger.WithStage(o.logger(ctx), string(state)).Info("refresh.stage.finish",
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.Bool("ok", err == nil),
	)
}

func (o *Orchestrator) logStageError(ctx context.Context, run *runState, msg string, state State, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	if run != nil {
		run.errorCount++
	}
	baseFields := []zap.Field{
		zap.String("error_type", classifyReason(err)),
		zap.String("error", err.Error()),
		zap.Bool("retryable", obsmetrics.IsRetryable(err)),
	}
	obslogger.WithStage(o.logger(ctx), string(state)).Error(msg, append(baseFields, fields...)...)
}

func (o *Orchestrator) logFindings(ctx context.Context, report qualitydomain.Report) {
	log := obslogger.WithStage(o.logger(ctx), string(StateValidating))
	for _, res := range report.Findings() {
		sample := res.OffendingIDs
		if len(sample) > maxLoggedIDs {
			sample = sample[:maxLoggedIDs]
		}
		log.Warn("refresh.validation.finding",
			zap.String("rule", string(res.Rule)),
			zap.String("entity", string(res.Entity)),
			zap.Int("count", len(res.OffendingIDs)),
			zap.Strings("sample_ids", sample),
		)
	}
}
