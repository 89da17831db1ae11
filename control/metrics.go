// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for clock update passes and power-domain forcing.
// All methods are safe on a nil *Metrics so components can run unobserved.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hioload_clk"

// Notification results used as the "result" label.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics holds the collectors shared by clock configurations and power domains.
type Metrics struct {
	updateRequests   *prometheus.CounterVec
	updateCoalesced  *prometheus.CounterVec
	updatePasses     *prometheus.CounterVec
	updateFailures   *prometheus.CounterVec
	staleCompletions *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	domainForced     *prometheus.GaugeVec
	domainHolders    *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg (if non-nil).
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		updateRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "clock", Name: "update_requests_total",
			Help: "Option bit changes that asked for a configuration update.",
		}, []string{"config"}),
		updateCoalesced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "clock", Name: "update_coalesced_total",
			Help: "Update requests absorbed by an already scheduled or running pass.",
		}, []string{"config"}),
		updatePasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "clock", Name: "update_passes_total",
			Help: "Completed configuration update passes.",
		}, []string{"config"}),
		updateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "clock", Name: "update_failures_total",
			Help: "Update passes whose hardware apply reported an error.",
		}, []string{"config"}),
		staleCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "clock", Name: "stale_completions_total",
			Help: "Completions reported while no update pass was in progress.",
		}, []string{"config"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "clock", Name: "notifications_total",
			Help: "Start notifications delivered to option gates.",
		}, []string{"config", "result"}),
		domainForced: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "power", Name: "domain_forced",
			Help: "1 while the power domain is forced always-on.",
		}, []string{"domain"}),
		domainHolders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "power", Name: "domain_holders",
			Help: "Distinct sinks currently forcing the power domain.",
		}, []string{"domain"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.updateRequests, m.updateCoalesced, m.updatePasses, m.updateFailures,
		m.staleCompletions, m.notifications, m.domainForced, m.domainHolders,
	}
}

// UpdateRequested records a request; coalesced is true when no work was scheduled for it.
func (m *Metrics) UpdateRequested(config string, coalesced bool) {
	if m == nil {
		return
	}
	m.updateRequests.WithLabelValues(config).Inc()
	if coalesced {
		m.updateCoalesced.WithLabelValues(config).Inc()
	}
}

// UpdateCompleted records the end of an update pass.
func (m *Metrics) UpdateCompleted(config string, failed bool) {
	if m == nil {
		return
	}
	m.updatePasses.WithLabelValues(config).Inc()
	if failed {
		m.updateFailures.WithLabelValues(config).Inc()
	}
}

// StaleCompletion records a completion that found no pass in progress.
func (m *Metrics) StaleCompletion(config string) {
	if m == nil {
		return
	}
	m.staleCompletions.WithLabelValues(config).Inc()
}

// Notified records a start notification delivered with the given result label.
func (m *Metrics) Notified(config, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(config, result).Inc()
}

// DomainState records the forcing state of a power domain.
func (m *Metrics) DomainState(domain string, forced bool, holders int) {
	if m == nil {
		return
	}
	v := 0.0
	if forced {
		v = 1
	}
	m.domainForced.WithLabelValues(domain).Set(v)
	m.domainHolders.WithLabelValues(domain).Set(float64(holders))
}
