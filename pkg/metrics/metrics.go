package metrics

import (
	"net/http"
	"time"

	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "courseguide"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	exchanges        *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
	conversations    prometheus.Gauge
	evictions        prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Model exchanges by outcome.",
		}, []string{"outcome"}),
		exchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Duration of model exchanges.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"outcome"}),
		conversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversations",
			Help:      "Conversations currently held in memory.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_evictions_total",
			Help:      "Conversations evicted from the store.",
		}),
	}

	m.registry.MustRegister(m.exchanges, m.exchangeDuration, m.conversations, m.evictions)
	return m
}

// ObserveExchange records one model exchange. A nil error counts as "ok",
// otherwise the outcome is the error kind.
func (m *Metrics) ObserveExchange(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = model.Classify(err).String()
	}
	m.exchanges.WithLabelValues(outcome).Inc()
	m.exchangeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) SetConversations(n int) {
	m.conversations.Set(float64(n))
}

func (m *Metrics) IncEvictions() {
	m.evictions.Inc()
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
