package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes notifier counters on a private Prometheus registry.
type Metrics struct {
	registry *prometheus.Registry

	events     *prometheus.CounterVec
	dispatches *prometheus.CounterVec
	recipients *prometheus.CounterVec
	probes     *prometheus.CounterVec
	deleted    prometheus.Counter
}

// New returns a Metrics collector with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_trigger_events_total",
			Help: "Trigger invocations by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_dispatches_total",
			Help: "Calls to the push delivery service by target kind.",
		}, []string{"target"}),
		recipients: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_recipients_total",
			Help: "Per-recipient delivery results reported by the push service.",
		}, []string{"result"}),
		probes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notifier_token_probes_total",
			Help: "Token probes by result.",
		}, []string{"result"}),
		deleted: f.NewCounter(prometheus.CounterOpts{
			Name: "notifier_tokens_deleted_total",
			Help: "Tokens removed by the cleanup sweep.",
		}),
	}
}

// IncTrigger counts one trigger invocation with its terminal outcome.
func (m *Metrics) IncTrigger(trigger, outcome string) {
	m.events.WithLabelValues(trigger, outcome).Inc()
}

// ObserveDispatch counts one dispatch and its per-recipient results.
func (m *Metrics) ObserveDispatch(target string, success, failure int) {
	m.dispatches.WithLabelValues(target).Inc()
	m.recipients.WithLabelValues("success").Add(float64(success))
	m.recipients.WithLabelValues("failure").Add(float64(failure))
}

func (m *Metrics) IncProbe(ok bool) {
	if ok {
		m.probes.WithLabelValues("ok").Inc()
		return
	}
	m.probes.WithLabelValues("failed").Inc()
}

func (m *Metrics) AddDeleted(n int) { m.deleted.Add(float64(n)) }

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
