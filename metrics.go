package sshcore

// Prometheus instrumentation for the channel layer (SPEC_FULL DOMAIN STACK):
// packets sent/received, bytes relayed per stream, and window-adjust
// count, observing spec §8 scenario 5 (large stdout / window-adjust
// counting) from the outside. Grounded on the AlexAQ972-FASST-LLM and
// postalsys-Muti-Metroo examples, which both register connection-level
// prometheus.CounterVec metrics the same way.

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters a Connection updates as it runs. A nil
// *Metrics (the default, via no WithMetrics option) disables recording
// entirely; every call site nil-checks before touching it.
type Metrics struct {
	PacketsSent       prometheus.Counter
	PacketsReceived   prometheus.Counter
	BytesRelayed      *prometheus.CounterVec
	WindowAdjustsSent prometheus.Counter
}

// NewMetrics registers a fresh set of counters with reg. Pass
// prometheus.NewRegistry() for an isolated registry (as cmd/sshrun does) or
// prometheus.DefaultRegisterer to join the global one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sshcore_packets_sent_total",
			Help: "Binary packets written to the transport stream.",
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sshcore_packets_received_total",
			Help: "Binary packets read from the transport stream.",
		}),
		BytesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sshcore_channel_bytes_relayed_total",
			Help: "Bytes delivered to the caller via the session channel, by stream.",
		}, []string{"stream"}),
		WindowAdjustsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sshcore_channel_window_adjusts_sent_total",
			Help: "CHANNEL_WINDOW_ADJUST messages sent to replenish local_window.",
		}),
	}
	reg.MustRegister(m.PacketsSent, m.PacketsReceived, m.BytesRelayed, m.WindowAdjustsSent)
	return m
}
