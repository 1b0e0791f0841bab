// Package metrics exposes prometheus collectors for the chat server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the dispatcher, connection server and realm links report
// to.
type Recorder interface {
	RecordCommand(command, status string, d time.Duration)
	ConnectionOpened()
	ConnectionClosed()
	RecordRelay(realm, outcome string)
	RecordDropped(realm string, n int)
	SetRealmQueueDepth(realm string, n int)
}

// Relay outcomes.
const (
	RelayDelivered = "delivered"
	RelayRejected  = "rejected"
	RelayFailed    = "failed"
)

type Collector struct {
	commands    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	connections prometheus.Gauge
	relays      *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	queueDepth  *prometheus.GaugeVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmchat_commands_total",
			Help: "Processed commands by name and response status.",
		}, []string{"command", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "realmchat_command_duration_seconds",
			Help:    "Command processing latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realmchat_active_connections",
			Help: "Open client connections.",
		}),
		relays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmchat_realm_relays_total",
			Help: "Relays sent to peer realms by outcome.",
		}, []string{"realm", "outcome"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmchat_realm_dropped_total",
			Help: "Queued relays dropped when a realm link went down.",
		}, []string{"realm"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "realmchat_realm_queue_depth",
			Help: "Relays waiting on a realm link.",
		}, []string{"realm"}),
	}

	reg.MustRegister(
		c.commands,
		c.latency,
		c.connections,
		c.relays,
		c.dropped,
		c.queueDepth,
	)

	return c
}

func (c *Collector) RecordCommand(command, status string, d time.Duration) {
	c.commands.WithLabelValues(command, status).Inc()
	c.latency.WithLabelValues(command).Observe(d.Seconds())
}

func (c *Collector) ConnectionOpened() { c.connections.Inc() }
func (c *Collector) ConnectionClosed() { c.connections.Dec() }

func (c *Collector) RecordRelay(realm, outcome string) {
	c.relays.WithLabelValues(realm, outcome).Inc()
}

func (c *Collector) RecordDropped(realm string, n int) {
	c.dropped.WithLabelValues(realm).Add(float64(n))
}

func (c *Collector) SetRealmQueueDepth(realm string, n int) {
	c.queueDepth.WithLabelValues(realm).Set(float64(n))
}

// Handler serves the gatherer in the prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordCommand(string, string, time.Duration) {}
func (Nop) ConnectionOpened()                           {}
func (Nop) ConnectionClosed()                           {}
func (Nop) RecordRelay(string, string)                  {}
func (Nop) RecordDropped(string, int)                   {}
func (Nop) SetRealmQueueDepth(string, int)              {}
