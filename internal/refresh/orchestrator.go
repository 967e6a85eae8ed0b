package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telcopulse/internal/aggregate"
	"github.com/smallbiznis/telcopulse/internal/clock"
	"github.com/smallbiznis/telcopulse/internal/lock"
	obsmetrics "github.com/smallbiznis/telcopulse/internal/observability/metrics"
	"github.com/smallbiznis/telcopulse/internal/observability/tracing"
	"github.com/smallbiznis/telcopulse/internal/quality"
	"github.com/smallbiznis/telcopulse/internal/reconcile"
	"github.com/smallbiznis/telcopulse/internal/risk"
	"github.com/smallbiznis/telcopulse/internal/rollup"
	"github.com/smallbiznis/telcopulse/internal/source"
	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
	"github.com/smallbiznis/telcopulse/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Invalidator drops cached views derived from source data.
type Invalidator interface {
	Invalidate()
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Source       sourcedomain.Accessor
	Normalizer   *quality.Normalizer
	Reconciler   *reconcile.Reconciler
	Rollup       *rollup.Service
	Risk         *risk.Service
	Locker       lock.Locker
	GenID        *snowflake.Node
	Clock        clock.Clock
	Config       Config              `optional:"true"`
	Metrics      *obsmetrics.Metrics `optional:"true"`
	Invalidators []Invalidator       `group:"refresh.invalidators"`
}

// Orchestrator drives Validating, Reconciling, Aggregating, RollingUp and
// Classifying in order. Every run starts from Idle and recomputes everything.
type Orchestrator struct {
	log          *zap.Logger
	cfg          Config
	source       sourcedomain.Accessor
	normalizer   *quality.Normalizer
	reconciler   *reconcile.Reconciler
	rollup       *rollup.Service
	risk         *risk.Service
	locker       lock.Locker
	runs         *RunStore
	genID        *snowflake.Node
	clock        clock.Clock
	metrics      *obsmetrics.Metrics
	invalidators []Invalidator
	tracer       trace.Tracer

	mu    sync.RWMutex
	state State
}

func New(p Params) (*Orchestrator, error) {
	if p.DB == nil || p.Log == nil || p.Source == nil || p.Reconciler == nil || p.Rollup == nil ||
		p.Risk == nil || p.Locker == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	return &Orchestrator{
		log:          p.Log.Named("refresh").With(zap.String("component", "refresh")),
		cfg:          cfg,
		source:       p.Source,
		normalizer:   p.Normalizer,
		reconciler:   p.Reconciler,
		rollup:       p.Rollup,
		risk:         p.Risk,
		locker:       p.Locker,
		runs:         NewRunStore(p.DB),
		genID:        p.GenID,
		clock:        p.Clock,
		metrics:      p.Metrics,
		invalidators: p.Invalidators,
		tracer:       otel.Tracer("telcopulse/refresh"),
		state:        StateIdle,
	}, nil
}

// State reports the stage the machine is currently in.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) Config() Config { return o.cfg }

type runOptions struct {
	trigger string
}

type RunOption func(*runOptions)

// WithTrigger records what started the run.
func WithTrigger(trigger string) RunOption {
	return func(o *runOptions) { o.trigger = trigger }
}

// runState carries intermediate data between stages of a single run.
type runState struct {
	result     *RunResult
	now        time.Time
	snapshot   sourcedomain.Snapshot
	aggregates aggregate.Result
	locked     bool
	begun      bool
	aggregated bool
	errorCount int
}

type stage struct {
	state State
	fn    func(ctx context.Context, run *runState) error
}

// Run executes one full refresh. The returned error equals RunResult.Err and
// is non-nil exactly when the run status is failed. Findings never fail a run;
// use RunResult.Strict for that policy.
func (o *Orchestrator) Run(ctx context.Context, opts ...RunOption) (RunResult, error) {
	ro := runOptions{trigger: TriggerCLI}
	for _, opt := range opts {
		opt(&ro)
	}

	result := &RunResult{
		RunID:     o.genID.Generate(),
		Pipeline:  o.cfg.Pipeline,
		Trigger:   ro.trigger,
		LastState: StateIdle,
		StartedAt: o.clock.Now(),
		Rows:      map[string]int{},
	}
	run := &runState{result: result, now: result.StartedAt}

	ctx = correlation.WithRun(ctx, o.cfg.Pipeline, result.RunID.String())
	ctx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()
	ctx, span := o.tracer.Start(ctx, "refresh.run", trace.WithAttributes(
		attribute.String("refresh.pipeline", o.cfg.Pipeline),
		attribute.String("refresh.trigger", ro.trigger),
	))
	defer span.End()

	o.logRunStart(ctx, result)

	// the machine state belongs to the lock holder
	lease, err := lock.Acquire(ctx, o.locker, lock.Key(o.cfg.Pipeline), o.cfg.LockTTL, o.cfg.LockWait)
	if err != nil {
		o.logStageError(ctx, run, "refresh.lock.failed", StateIdle, err)
		return o.finish(ctx, run, fmt.Errorf("acquire lock: %w", err), span)
	}
	defer o.release(ctx, lease)
	run.locked = true
	o.setState(StateIdle)

	if err := o.runs.Begin(ctx, result.Record()); err != nil {
		o.logger(ctx).Warn("refresh.ledger.begin_failed", zap.Error(err))
	} else {
		run.begun = true
	}

	stages := []stage{
		{StateValidating, o.validate},
		{StateReconciling, o.reconcile},
		{StateAggregating, o.aggregate},
		{StateRollingUp, o.rollUp},
		{StateClassifying, o.classify},
	}
	var hardErr error
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			hardErr = err
			break
		}
		if err := o.runStage(ctx, run, st); err != nil {
			hardErr = fmt.Errorf("%s: %w", st.state, err)
			break
		}
	}
	return o.finish(ctx, run, hardErr, span)
}

func (o *Orchestrator) runStage(ctx context.Context, run *runState, st stage) error {
	o.setState(st.state)
	run.result.LastState = st.state
	if st.state == StateAggregating {
		run.aggregated = true
	}

	ctx, span := o.tracer.Start(ctx, "refresh."+string(st.state))
	defer span.End()

	start := time.Now()
	o.logStageStart(ctx, st.state)
	err := st.fn(ctx, run)
	elapsed := time.Since(start)
	obsmetrics.Pipeline().ObserveStage(string(st.state), elapsed)
	o.logStageFinish(ctx, st.state, elapsed, err)

	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, classifyReason(err))
		obsmetrics.Pipeline().IncStageError(string(st.state), classifyReason(err))
		o.logStageError(ctx, run, "refresh.stage.failed", st.state, err)
	}
	return err
}

func (o *Orchestrator) validate(ctx context.Context, run *runState) error {
	snap, err := source.LoadSnapshot(ctx, o.source, run.now)
	if err != nil {
		return err
	}
	run.snapshot = snap
	run.result.Report = quality.Validate(snap)
	o.recordFindings(ctx, run)
	return nil
}

func (o *Orchestrator) reconcile(ctx context.Context, run *runState) error {
	if o.cfg.Normalize && o.normalizer != nil {
		customers, changed, err := o.normalizer.Normalize(ctx, run.snapshot.Customers)
		if err != nil {
			return fmt.Errorf("normalize: %w", err)
		}
		run.snapshot.Customers = customers
		run.result.Normalized = changed
	}

	demoted, err := o.reconciler.Reconcile(ctx, run.snapshot.Customers, run.snapshot.Sims, run.snapshot.Fibers)
	run.result.Reconciled = demoted
	// statuses written before a failure stay written; keep the snapshot in step
	run.snapshot.Customers = reconcile.ApplyStatuses(run.snapshot.Customers, demoted)
	if err != nil {
		return err
	}
	o.metrics.RecordStatusDemotions(ctx, len(demoted))
	return nil
}

func (o *Orchestrator) aggregate(ctx context.Context, run *runState) error {
	result, err := aggregate.Compute(ctx, run.snapshot)
	if err != nil {
		return err
	}
	run.aggregates = result
	return nil
}

func (o *Orchestrator) rollUp(ctx context.Context, run *runState) error {
	replaceCtx, cancel := context.WithTimeout(ctx, o.cfg.ReplaceTimeout)
	defer cancel()

	count, err := o.rollup.RefreshMonthlyRevenue(replaceCtx, run.snapshot.Payments, run.now)
	return o.recordReplace(ctx, run, StateRollingUp, ArtifactMonthlyRevenue, count, err)
}

func (o *Orchestrator) classify(ctx context.Context, run *runState) error {
	replaceCtx, cancel := context.WithTimeout(ctx, o.cfg.ReplaceTimeout)
	defer cancel()

	count, err := o.risk.RefreshCustomerRisk(replaceCtx, run.aggregates.CustomerValue, run.now)
	return o.recordReplace(ctx, run, StateClassifying, ArtifactCustomerRisk, count, err)
}

// recordReplace keeps a failed replace local to its artifact. Only
// cancellation of the run itself aborts the remaining stages.
func (o *Orchestrator) recordReplace(ctx context.Context, run *runState, st State, artifact string, count int, err error) error {
	if err == nil {
		run.result.Rows[artifact] = count
		obsmetrics.Pipeline().AddRowsReplaced(artifact, count)
		o.metrics.RecordRowsReplaced(ctx, artifact, count)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", artifact, ctxErr)
	}

	artifactErr := &ArtifactError{Artifact: artifact, Err: err}
	run.result.ArtifactErrors = append(run.result.ArtifactErrors, artifactErr)
	obsmetrics.Pipeline().IncStageError(string(st), reasonReplaceFailed)
	o.logStageError(ctx, run, "refresh.artifact.replace_failed", st, artifactErr,
		zap.String("artifact", artifact),
	)
	return nil
}

func (o *Orchestrator) recordFindings(ctx context.Context, run *runState) {
	report := run.result.Report
	counts := report.CountByRule()

	rules := make([]string, 0, len(report.Results))
	byRule := make(map[string]int, len(counts))
	seen := map[string]struct{}{}
	for _, res := range report.Results {
		rule := string(res.Rule)
		if _, ok := seen[rule]; !ok {
			seen[rule] = struct{}{}
			rules = append(rules, rule)
		}
	}
	for rule, n := range counts {
		byRule[string(rule)] = n
		o.metrics.RecordFindings(ctx, string(rule), n)
	}
	obsmetrics.Pipeline().SetFindings(rules, byRule)
	o.logFindings(ctx, report)
}

func (o *Orchestrator) finish(ctx context.Context, run *runState, hardErr error, span trace.Span) (RunResult, error) {
	result := run.result
	result.FinishedAt = o.clock.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.finalize(hardErr)
	if run.locked {
		o.setState(result.FinalState())
	}

	// record and publish even when the run context is gone
	bg := context.WithoutCancel(ctx)
	record := result.Record()
	if run.begun {
		if err := o.runs.Complete(bg, record); err != nil {
			o.logger(bg).Warn("refresh.ledger.complete_failed", zap.Error(err))
		}
	} else if err := o.runs.Begin(bg, record); err != nil {
		o.logger(bg).Warn("refresh.ledger.record_failed", zap.Error(err))
	}

	if run.aggregated {
		for _, inv := range o.invalidators {
			inv.Invalidate()
		}
	}

	obsmetrics.Pipeline().ObserveRun(o.cfg.Pipeline, string(result.Status), result.Duration, result.FinishedAt)
	o.metrics.RecordRefreshRun(bg, o.cfg.Pipeline, string(result.Status), result.Duration)

	span.SetAttributes(
		attribute.String("refresh.run_id", result.RunID.String()),
		attribute.String("refresh.status", string(result.Status)),
		attribute.Int("refresh.finding_count", result.Report.FindingCount()),
	)
	if result.Err != nil {
		span.RecordError(tracing.SafeError(result.Err))
		span.SetStatus(codes.Error, classifyReason(result.Err))
	}
	o.logRunFinish(bg, run)
	return *result, result.Err
}

func (o *Orchestrator) release(ctx context.Context, lease *lock.Lease) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := lease.Release(releaseCtx); err != nil {
		level := o.logger(ctx).Error
		if errors.Is(err, lock.ErrLockLost) {
			level = o.logger(ctx).Warn
		}
		level("refresh.lock.release_failed", zap.String("key", lease.Key()), zap.Error(err))
	}
}

// RunOnce runs a scheduled refresh, converting panics into errors.
func (o *Orchestrator) RunOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panic: %v", r)
			o.setState(StateFailed)
			o.log.Error("refresh.run.panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	_, err = o.Run(ctx, WithTrigger(TriggerSchedule))
	return err
}

// RunForever refreshes immediately and then every interval until ctx ends.
func (o *Orchestrator) RunForever(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()
	nextRun := time.Now().Add(o.cfg.Interval)

	for {
		if err := o.RunOnce(ctx); err != nil {
			o.log.Warn("refresh run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			obsmetrics.Pipeline().ObserveRunLoopLag(time.Since(nextRun))
			nextRun = nextRun.Add(o.cfg.Interval)
		}
	}
}
