// Package metrics exposes relay counters and gauges to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ephroom"

// Metrics groups all relay collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	roomsCreated    prometheus.Counter
	roomsDeleted    prometheus.Counter
	connections     prometheus.Gauge
	hosts           prometheus.Gauge
	guests          prometheus.Gauge
	invalidKeys     prometheus.Counter
	ignoredFrames   prometheus.Counter
	rateLimited     prometheus.Counter
	publishes       prometheus.Counter
	publishErrors   prometheus.Counter
	busDeliveries   prometheus.Counter
	framesDelivered prometheus.Counter
	framesDropped   prometheus.Counter
}

// New registers the relay collectors plus Go runtime and process collectors on a
// dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	return &Metrics{
		registry:        reg,
		roomsCreated:    counter("rooms_created_total", "Rooms minted through the creation endpoint."),
		roomsDeleted:    counter("rooms_deleted_total", "Rooms deleted on host disconnect."),
		connections:     gauge("connections", "Open realtime connections."),
		hosts:           gauge("hosts", "Connections authenticated as a room host."),
		guests:          gauge("guests", "Guest connections registered in the subscriber directory."),
		invalidKeys:     counter("invalid_room_keys_total", "Keep-alives rejected for a wrong or unknown room token."),
		ignoredFrames:   counter("ignored_frames_total", "Inbound frames ignored for the session state."),
		rateLimited:     counter("rate_limited_frames_total", "Inbound frames rejected by the per-connection rate limit."),
		publishes:       counter("publishes_total", "Host payloads published to the bus."),
		publishErrors:   counter("publish_errors_total", "Host payloads the bus failed to accept."),
		busDeliveries:   counter("bus_deliveries_total", "Messages received from the bus subscription."),
		framesDelivered: counter("frames_delivered_total", "Broadcast frames queued to guests."),
		framesDropped:   counter("frames_dropped_total", "Broadcast frames dropped because a guest queue was full."),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RoomCreated() {
	if m != nil {
		m.roomsCreated.Inc()
	}
}

func (m *Metrics) RoomDeleted() {
	if m != nil {
		m.roomsDeleted.Inc()
	}
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) HostJoined() {
	if m != nil {
		m.hosts.Inc()
	}
}

func (m *Metrics) HostLeft() {
	if m != nil {
		m.hosts.Dec()
	}
}

func (m *Metrics) GuestJoined() {
	if m != nil {
		m.guests.Inc()
	}
}

func (m *Metrics) GuestLeft() {
	if m != nil {
		m.guests.Dec()
	}
}

func (m *Metrics) InvalidKey() {
	if m != nil {
		m.invalidKeys.Inc()
	}
}

func (m *Metrics) FrameIgnored() {
	if m != nil {
		m.ignoredFrames.Inc()
	}
}

func (m *Metrics) FrameRateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}

func (m *Metrics) Published(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.publishErrors.Inc()
		return
	}
	m.publishes.Inc()
}

func (m *Metrics) BusDelivery() {
	if m != nil {
		m.busDeliveries.Inc()
	}
}

// Fanout records the outcome of one broadcast across a room's guests.
func (m *Metrics) Fanout(delivered, dropped int) {
	if m == nil {
		return
	}
	m.framesDelivered.Add(float64(delivered))
	m.framesDropped.Add(float64(dropped))
}
