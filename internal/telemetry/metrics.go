package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "salonpro"

// Metrics owns a private registry so tests can create as many instances as
// they like without tripping duplicate registration.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests     *prometheus.CounterVec
	rpcDuration     *prometheus.HistogramVec
	outboxPublished prometheus.Counter
	outboxFailures  prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		rpcRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_requests_total",
				Help:      "Total number of unary RPCs handled, by method and status code",
			},
			[]string{"method", "code"},
		),
		rpcDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_duration_seconds",
				Help:      "Duration of unary RPCs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		outboxPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_events_published_total",
				Help:      "Total number of appointment events relayed to the broker",
			},
		),
		outboxFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_publish_failures_total",
				Help:      "Total number of failed outbox relay batches",
			},
		),
	}

	registry.MustRegister(
		m.rpcRequests,
		m.rpcDuration,
		m.outboxPublished,
		m.outboxFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOutbox records the outcome of one relay batch.
func (m *Metrics) ObserveOutbox(published int, err error) {
	if err != nil {
		m.outboxFailures.Inc()
		return
	}
	m.outboxPublished.Add(float64(published))
}

func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		m.rpcDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		m.rpcRequests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}
