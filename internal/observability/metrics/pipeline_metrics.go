package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonCanceled             = "canceled"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonDB                   = "db"
	ReasonUnknown              = "unknown"
)

const (
	LockBackendRedis = "redis"
	LockBackendDB    = "db"
)

// PipelineMetrics captures refresh pipeline health signals.
type PipelineMetrics struct {
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	findings      *prometheus.GaugeVec
	rowsReplaced  *prometheus.CounterVec
	lockWait      *prometheus.HistogramVec
	lockContended *prometheus.CounterVec
	lastSuccess   *prometheus.GaugeVec
	runLoopLag    prometheus.Observer
}

var (
	pipelineMetricsOnce sync.Once
	pipelineMetrics     *PipelineMetrics
)

// Pipeline returns the singleton pipeline metrics registry.
func Pipeline() *PipelineMetrics {
	return PipelineWithConfig(Config{})
}

// PipelineWithConfig returns the singleton pipeline metrics registry using config labels.
func PipelineWithConfig(cfg Config) *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = newPipelineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return pipelineMetrics
}

// ResetPipelineMetricsForTest resets the pipeline metrics singleton for tests.
func ResetPipelineMetricsForTest() {
	pipelineMetricsOnce = sync.Once{}
	pipelineMetrics = nil
}

// NewPipelineMetricsForTest registers a fresh set of collectors on registerer.
func NewPipelineMetricsForTest(registerer prometheus.Registerer) *PipelineMetrics {
	return newPipelineMetrics(registerer, Config{ServiceName: "telcopulse", Environment: "test"})
}

func newPipelineMetrics(registerer prometheus.Registerer, cfg Config) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "telcopulse"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "telcopulse_refresh_runs_total",
		Help:        "Refresh runs by pipeline and final status.",
		ConstLabels: constLabels,
	}, []string{"pipeline", "status"})
	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "telcopulse_refresh_run_duration_seconds",
		Help:        "End-to-end refresh run latency.",
		Buckets:     []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
		ConstLabels: constLabels,
	}, []string{"pipeline"})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "telcopulse_refresh_stage_duration_seconds",
		Help:        "Refresh stage latency.",
		Buckets:     []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		ConstLabels: constLabels,
	}, []string{"stage"})
	stageErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "telcopulse_refresh_stage_errors_total",
		Help:        "Refresh stage errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"stage", "reason"})
	findings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "telcopulse_quality_findings",
		Help:        "Offending records per validation rule in the latest run.",
		ConstLabels: constLabels,
	}, []string{"rule"})
	rowsReplaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "telcopulse_artifact_rows_replaced_total",
		Help:        "Rows published per derived artifact.",
		ConstLabels: constLabels,
	}, []string{"artifact"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "telcopulse_refresh_lock_wait_seconds",
		Help:        "Time spent acquiring the run-level lock.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"backend"})
	lockContended := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "telcopulse_refresh_lock_contended_total",
		Help:        "Runs that gave up waiting for the run-level lock.",
		ConstLabels: constLabels,
	}, []string{"backend"})
	lastSuccess := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "telcopulse_refresh_last_success_timestamp_seconds",
		Help:        "Unix time of the last run that published every artifact.",
		ConstLabels: constLabels,
	}, []string{"pipeline"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "telcopulse_refresh_runloop_lag_seconds",
		Help:        "Refresh loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})

	runs = register(registerer, runs)
	runDuration = register(registerer, runDuration)
	stageDuration = register(registerer, stageDuration)
	stageErrors = register(registerer, stageErrors)
	findings = register(registerer, findings)
	rowsReplaced = register(registerer, rowsReplaced)
	lockWait = register(registerer, lockWait)
	lockContended = register(registerer, lockContended)
	lastSuccess = register(registerer, lastSuccess)
	runLoopLag = register(registerer, runLoopLag)

	return &PipelineMetrics{
		runs:          runs,
		runDuration:   runDuration,
		stageDuration: stageDuration,
		stageErrors:   stageErrors,
		findings:      findings,
		rowsReplaced:  rowsReplaced,
		lockWait:      lockWait,
		lockContended: lockContended,
		lastSuccess:   lastSuccess,
		runLoopLag:    runLoopLag,
	}
}

// register adds c to registerer, reusing the collector already registered
// under the same descriptor so the singleton can be rebuilt in tests.
func register[C prometheus.Collector](registerer prometheus.Registerer, c C) C {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveRun records a finished run.
func (m *PipelineMetrics) ObserveRun(pipeline, status string, duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(pipeline, status).Inc()
	m.runDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
	if status == "success" || status == "partial_findings" {
		m.lastSuccess.WithLabelValues(pipeline).Set(float64(finishedAt.Unix()))
	}
}

// ObserveStage records how long a stage took.
func (m *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// IncStageError counts a stage failure under reason.
func (m *PipelineMetrics) IncStageError(stage, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = ReasonUnknown
	}
	m.stageErrors.WithLabelValues(stage, reason).Inc()
}

// SetFindings publishes the latest per-rule offending record counts. Rules
// absent from counts are reset to zero.
func (m *PipelineMetrics) SetFindings(rules []string, counts map[string]int) {
	if m == nil {
		return
	}
	for _, rule := range rules {
		m.findings.WithLabelValues(rule).Set(float64(counts[rule]))
	}
}

// AddRowsReplaced counts rows published for artifact.
func (m *PipelineMetrics) AddRowsReplaced(artifact string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.rowsReplaced.WithLabelValues(artifact).Add(float64(count))
}

// ObserveLockWait records time spent acquiring the run-level lock.
func (m *PipelineMetrics) ObserveLockWait(backend string, duration time.Duration, acquired bool) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(backend).Observe(duration.Seconds())
	if !acquired {
		m.lockContended.WithLabelValues(backend).Inc()
	}
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *PipelineMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil || m.runLoopLag == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.runLoopLag.Observe(duration.Seconds())
}

// ClassifyReason maps infrastructure errors to low-cardinality reasons.
func ClassifyReason(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonDeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return ReasonCanceled
	}
	if hasPGCode(err, "55P03") {
		return ReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return ReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return ReasonUniqueViolation
	}
	if isDBError(err) {
		return ReasonDB
	}
	return ReasonUnknown
}

// IsRetryable reports whether a later run may succeed without intervention.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return hasPGCode(err, "55P03") || hasPGCode(err, "40001")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
