// Package telemetry exposes service metrics in the Prometheus format.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	export "go.opentelemetry.io/otel/sdk/export/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregator/histogram"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	selector "go.opentelemetry.io/otel/sdk/metric/selector/simple"

	"github.com/SergeyParamoshkin/posts/internal/storage"
)

var (
	outcomeKey = attribute.Key("outcome")
	opKey      = attribute.Key("op")
	failedKey  = attribute.Key("failed")
)

type Metrics struct {
	exporter *prometheus.Exporter

	requests     metric.Int64Counter
	submissions  metric.Int64Counter
	storeLatency metric.Float64ValueRecorder
}

func New(serviceName string) (*Metrics, error) {
	config := prometheus.Config{}
	c := controller.New(
		processor.New(
			selector.NewWithHistogramDistribution(
				histogram.WithExplicitBoundaries(config.DefaultHistogramBoundaries),
			),
			export.CumulativeExportKindSelector(),
			processor.WithMemory(true),
		),
	)
	exporter, err := prometheus.New(config, c)
	if err != nil {
		return nil, err
	}

	meter := exporter.MeterProvider().Meter(serviceName)
	must := metric.Must(meter)

	return &Metrics{
		exporter: exporter,
		requests: must.NewInt64Counter(
			"http/server/completed_count",
			metric.WithDescription("Count of completed requests"),
		),
		submissions: must.NewInt64Counter(
			"posts/submissions",
			metric.WithDescription("Post form submissions, by outcome"),
		),
		storeLatency: must.NewFloat64ValueRecorder(
			"posts/store/latency_ms",
			metric.WithDescription("Latency of store backend calls in milliseconds"),
		),
	}, nil
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.exporter
}

func (m *Metrics) Request(ctx context.Context) {
	m.requests.Add(ctx, 1)
}

// Submission counts one form submission ending in outcome.
func (m *Metrics) Submission(ctx context.Context, outcome string) {
	m.submissions.Add(ctx, 1, outcomeKey.String(outcome))
}

// StoreObserver records backend call latencies.
func (m *Metrics) StoreObserver() storage.Observer {
	return func(ctx context.Context, op string, d time.Duration, err error) {
		m.storeLatency.Record(ctx, float64(d)/float64(time.Millisecond),
			opKey.String(op), failedKey.Bool(err != nil))
	}
}
