// Package metrics holds the Prometheus instruments of the dashboard runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "acctdash"

type Metrics struct {
	EventsTotal       *prometheus.CounterVec
	RefreshesTotal    *prometheus.CounterVec
	RefreshDropped    prometheus.Counter
	InterpolatedTicks prometheus.Counter
	NetPnL            prometheus.Gauge
	StreamConnected   prometheus.Gauge
}

// New creates the instruments and registers them with reg. A nil reg leaves
// them unregistered, which tests rely on.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Push events ingested, by event name.",
		}, []string{"event"}),
		RefreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "REST refreshes issued, by kind and result.",
		}, []string{"kind", "result"}),
		RefreshDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_dropped_total",
			Help:      "Detail refreshes skipped because one was already in flight.",
		}),
		InterpolatedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpolated_ticks_total",
			Help:      "Positions nudged by the interpolation ticker.",
		}),
		NetPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "net_pnl",
			Help:      "Net PnL of the selected account.",
		}),
		StreamConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connected",
			Help:      "1 while the push-event connection is up.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.EventsTotal,
			m.RefreshesTotal,
			m.RefreshDropped,
			m.InterpolatedTicks,
			m.NetPnL,
			m.StreamConnected,
		)
	}
	return m
}

// Nop returns unregistered instruments.
func Nop() *Metrics { return New(nil) }
