// Package metrics exposes Prometheus counters for issuance and resolution.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/serroba/tinylink/internal/shortener"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeConflict  = "conflict"
	OutcomeFailure   = "failure"
	OutcomeInvalid   = "invalid"
	OutcomeExhausted = "exhausted"
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
)

// Metrics holds the service's collectors on a dedicated registry.
type Metrics struct {
	registry        *prometheus.Registry
	reserves        *prometheus.CounterVec
	issues          *prometheus.CounterVec
	resolves        *prometheus.CounterVec
	publishFailures prometheus.Counter
}

// New registers all collectors under namespace, plus Go and process collectors.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reserves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reserve_total",
			Help:      "Token reservations by outcome.",
		}, []string{"outcome"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issue_total",
			Help:      "Issue requests by outcome.",
		}, []string{"outcome"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Token resolutions by outcome.",
		}, []string{"outcome"}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Link events that could not be published.",
		}),
	}

	m.registry.MustRegister(
		m.reserves,
		m.issues,
		m.resolves,
		m.publishFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveIssue counts the result of an Issue call.
func (m *Metrics) ObserveIssue(err error) {
	m.issues.WithLabelValues(issueOutcome(err)).Inc()
}

// ObservePublishFailure counts an event that was not published.
func (m *Metrics) ObservePublishFailure() {
	m.publishFailures.Inc()
}

func issueOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, shortener.ErrInvalidInput):
		return OutcomeInvalid
	case errors.Is(err, shortener.ErrExhausted):
		return OutcomeExhausted
	default:
		return OutcomeFailure
	}
}

// Registry counts reserve and resolve outcomes of the wrapped registry.
type Registry struct {
	next    shortener.Registry
	metrics *Metrics
}

// InstrumentRegistry wraps registry so every call is counted.
func (m *Metrics) InstrumentRegistry(registry shortener.Registry) *Registry {
	return &Registry{next: registry, metrics: m}
}

func (r *Registry) Reserve(ctx context.Context, token shortener.Token, url string) error {
	err := r.next.Reserve(ctx, token, url)

	outcome := OutcomeOK

	switch {
	case err == nil:
	case errors.Is(err, shortener.ErrConflict):
		outcome = OutcomeConflict
	default:
		outcome = OutcomeFailure
	}

	r.metrics.reserves.WithLabelValues(outcome).Inc()

	return err
}

func (r *Registry) Resolve(ctx context.Context, token shortener.Token) (*shortener.ShortLink, error) {
	link, err := r.next.Resolve(ctx, token)

	outcome := OutcomeFound

	switch {
	case err == nil:
	case errors.Is(err, shortener.ErrNotFound):
		outcome = OutcomeNotFound
	default:
		outcome = OutcomeFailure
	}

	r.metrics.resolves.WithLabelValues(outcome).Inc()

	return link, err
}

var _ shortener.Registry = (*Registry)(nil)
