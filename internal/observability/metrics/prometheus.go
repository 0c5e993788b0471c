// Package metrics provides Prometheus metrics for the assistant.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drfirst/go-healthassist/pkg/circuitbreaker"
)

// Metrics holds all application metrics
type Metrics struct {
	TriageVerdicts        *prometheus.CounterVec
	InteractionHits       *prometheus.CounterVec
	Lookups               *prometheus.CounterVec
	CacheRequests         *prometheus.CounterVec
	CircuitBreakerState   *prometheus.GaugeVec
	RequestDuration       *prometheus.HistogramVec
	KafkaMessagesProduced prometheus.Counter
	KafkaMessagesConsumed prometheus.Counter
	WarmerTasks           *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them with reg.
// A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		TriageVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_verdicts_total",
			Help: "Triage verdicts by level",
		}, []string{"level"}),
		InteractionHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interaction_hits_total",
			Help: "Interaction rule hits by severity",
		}, []string{"severity"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "external_lookups_total",
			Help: "External lookups by service and outcome",
		}, []string{"service", "outcome"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "response_cache_requests_total",
			Help: "Response cache reads (result=hit|miss)",
		}, []string{"result"}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 25},
		}, []string{"route", "status"}),
		KafkaMessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total Kafka messages produced",
		}),
		KafkaMessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Total Kafka messages consumed",
		}),
		WarmerTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "label_warmer_tasks_total",
			Help: "Label warm-up tasks by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.TriageVerdicts,
		m.InteractionHits,
		m.Lookups,
		m.CacheRequests,
		m.CircuitBreakerState,
		m.RequestDuration,
		m.KafkaMessagesProduced,
		m.KafkaMessagesConsumed,
		m.WarmerTasks,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// ObserveLookup matches lookup.WithObserver.
func (m *Metrics) ObserveLookup(service, outcome string) {
	m.Lookups.WithLabelValues(service, outcome).Inc()
}

// ObserveCache matches responsecache.WithObserver.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// ObserveBreaker matches the circuitbreaker.Manager state listener.
func (m *Metrics) ObserveBreaker(name string, _, to circuitbreaker.State) {
	m.CircuitBreakerState.WithLabelValues(name).Set(breakerValue(to))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.RequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

func breakerValue(s circuitbreaker.State) float64 {
	switch s {
	case circuitbreaker.StateOpen:
		return 1
	case circuitbreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
