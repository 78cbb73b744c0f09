package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marcelsud/webhook-relay/relay"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

/* OTelExporter publishes relay metrics through OpenTelemetry with a Prometheus reader
 * It also implements relay.Observer to count dispatch outcomes
 */
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector
	handler       http.Handler

	meter            metric.Meter
	queueDepthGauge  metric.Int64ObservableGauge
	liveClientsGauge metric.Int64ObservableGauge
	pendingGauge     metric.Int64ObservableGauge
	dispatchCounter  metric.Int64Counter
	dispatchDuration metric.Float64Histogram
}

// NewOTelExporter creates an exporter on the default Prometheus registry
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	return newOTelExporter(collector, nil)
}

// NewOTelExporterWithRegistry creates an exporter on its own registry
func NewOTelExporterWithRegistry(collector Collector, registry *promclient.Registry) (*OTelExporter, error) {
	return newOTelExporter(collector, registry)
}

func newOTelExporter(collector Collector, registry *promclient.Registry) (*OTelExporter, error) {
	var (
		opts    []prometheus.Option
		handler = promhttp.Handler()
	)
	if registry != nil {
		opts = append(opts, prometheus.WithRegisterer(registry))
		handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	exporter, err := prometheus.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	if registry == nil {
		otel.SetMeterProvider(meterProvider)
	}

	meter := meterProvider.Meter(
		"webhook-relay",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		handler:       handler,
		meter:         meter,
	}

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.queueDepthGauge, err = oe.meter.Int64ObservableGauge(
		"relay.queue.depth",
		metric.WithDescription("Number of requests queued per client"),
		metric.WithUnit("{requests}"),
		metric.WithInt64Callback(oe.observeQueueDepths),
	)
	if err != nil {
		return fmt.Errorf("creating queue depth gauge: %w", err)
	}

	oe.liveClientsGauge, err = oe.meter.Int64ObservableGauge(
		"relay.clients.live",
		metric.WithDescription("Number of live clients per tunnel"),
		metric.WithUnit("{clients}"),
		metric.WithInt64Callback(oe.observeLiveClients),
	)
	if err != nil {
		return fmt.Errorf("creating live clients gauge: %w", err)
	}

	oe.pendingGauge, err = oe.meter.Int64ObservableGauge(
		"relay.correlations.pending",
		metric.WithDescription("Number of inbound calls waiting for a client response"),
		metric.WithUnit("{requests}"),
		metric.WithInt64Callback(oe.observePending),
	)
	if err != nil {
		return fmt.Errorf("creating pending correlations gauge: %w", err)
	}

	oe.dispatchCounter, err = oe.meter.Int64Counter(
		"relay.dispatches",
		metric.WithDescription("Number of synchronous dispatches by outcome"),
		metric.WithUnit("{dispatches}"),
	)
	if err != nil {
		return fmt.Errorf("creating dispatch counter: %w", err)
	}

	oe.dispatchDuration, err = oe.meter.Float64Histogram(
		"relay.dispatch.duration",
		metric.WithDescription("Time from enqueue to client response or abandonment"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating dispatch duration histogram: %w", err)
	}

	return nil
}

func (oe *OTelExporter) observeQueueDepths(ctx context.Context, observer metric.Int64Observer) error {
	depths, err := oe.collector.GetQueueDepths(ctx)
	if err != nil {
		return err
	}

	for client, depth := range depths {
		observer.Observe(depth, metric.WithAttributes(
			attribute.String("client.key", client),
		))
	}

	return nil
}

func (oe *OTelExporter) observeLiveClients(ctx context.Context, observer metric.Int64Observer) error {
	clients, err := oe.collector.GetLiveClients(ctx)
	if err != nil {
		return err
	}

	for name, count := range clients {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("tunnel.name", name),
		))
	}

	return nil
}

func (oe *OTelExporter) observePending(ctx context.Context, observer metric.Int64Observer) error {
	pending, err := oe.collector.GetPendingCorrelations(ctx)
	if err != nil {
		return err
	}
	observer.Observe(pending)
	return nil
}

// ObserveDispatch records the outcome and latency of a dispatch
func (oe *OTelExporter) ObserveDispatch(ctx context.Context, outcome relay.Outcome, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome.String()))
	oe.dispatchCounter.Add(ctx, 1, attrs)
	oe.dispatchDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// ServeHTTP returns the Prometheus exposition handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return oe.handler
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
