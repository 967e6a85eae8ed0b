package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes OTLP-exported refresh instruments.
type Metrics struct {
	refreshRuns     metric.Int64Counter
	findings        metric.Int64Counter
	rowsReplaced    metric.Int64Counter
	statusDemotions metric.Int64Counter
	refreshDuration metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "telcopulse"
	}
	meter := provider.Meter(name)

	refreshRuns, err := meter.Int64Counter("telcopulse_refresh_runs_total")
	if err != nil {
		return nil, err
	}
	findings, err := meter.Int64Counter("telcopulse_quality_findings_total")
	if err != nil {
		return nil, err
	}
	rowsReplaced, err := meter.Int64Counter("telcopulse_artifact_rows_replaced_total")
	if err != nil {
		return nil, err
	}
	statusDemotions, err := meter.Int64Counter("telcopulse_customer_status_demotions_total")
	if err != nil {
		return nil, err
	}
	refreshDuration, err := meter.Float64Histogram("telcopulse_refresh_duration_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		refreshRuns:     refreshRuns,
		findings:        findings,
		rowsReplaced:    rowsReplaced,
		statusDemotions: statusDemotions,
		refreshDuration: refreshDuration,
	}, nil
}

// RecordRefreshRun counts a finished run and its duration.
func (m *Metrics) RecordRefreshRun(ctx context.Context, pipeline, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("pipeline", strings.TrimSpace(pipeline)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.refreshRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.refreshDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordFindings adds the offending record count for one rule.
func (m *Metrics) RecordFindings(ctx context.Context, rule string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("rule", strings.TrimSpace(rule)))
	m.findings.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordRowsReplaced adds the number of rows published for an artifact.
func (m *Metrics) RecordRowsReplaced(ctx context.Context, artifact string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("artifact", strings.TrimSpace(artifact)))
	m.rowsReplaced.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordStatusDemotions counts customers the reconciler marked Inactive.
func (m *Metrics) RecordStatusDemotions(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.statusDemotions.Add(ctx, int64(count))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"pipeline": {},
	"status":   {},
	"stage":    {},
	"rule":     {},
	"artifact": {},
	"reason":   {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
