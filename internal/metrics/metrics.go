// Package metrics registers the fixed set of Prometheus collectors
// SPEC_FULL.md §11 names for the four components and serves them over
// promhttp.Handler(). This supersedes the teacher's internal/core/metrics,
// which was sized for a full P2P node's bandwidth/rate/topology
// reporting (see DESIGN.md) — this package instead exercises the
// teacher's declared but previously-unused dependency on
// prometheus/client_golang directly, with no intermediate abstraction.
package metrics

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector this process registers, regardless
// of which of the four components is hosted in it.
type Registry struct {
	reg *prometheus.Registry

	LQMModeTransitions   *prometheus.CounterVec
	PDSPeersActive       prometheus.Gauge
	PDSPeerRSSI          *prometheus.GaugeVec
	PDSPeerSNR           *prometheus.GaugeVec
	PBDedupHits          prometheus.Counter
	PBSpoolDepth         *prometheus.GaugeVec
	ROSRetryExhausted    prometheus.Counter
	ROSReceiptRTT        prometheus.Histogram

	server *http.Server
}

// New builds a Registry with every collector registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		LQMModeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lqm_mode_transitions_total",
			Help: "Count of FAST/SLOW transitions, labeled by destination mode.",
		}, []string{"to"}),
		PDSPeersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pds_peers_active",
			Help: "Number of peers currently in the peer map.",
		}),
		PDSPeerRSSI: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pds_peer_rssi_dbm",
			Help: "Last observed RSSI for a peer's announce, when the overlay transport reports it.",
		}, []string{"hostname"}),
		PDSPeerSNR: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pds_peer_snr_db",
			Help: "Last observed SNR for a peer's announce, when the overlay transport reports it.",
		}, []string{"hostname"}),
		PBDedupHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pb_dedup_hits_total",
			Help: "Packets dropped because the fingerprint ring had already seen them.",
		}),
		PBSpoolDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pb_spool_depth",
			Help: "Number of files currently in a spool stage.",
		}, []string{"stage"}),
		ROSRetryExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ros_retry_exhausted_total",
			Help: "Delivery targets abandoned after RETRY_MAX_ATTEMPTS.",
		}),
		ROSReceiptRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ros_receipt_rtt_seconds",
			Help:    "Observed round-trip time from send to delivery confirmation.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	reg.MustRegister(
		r.LQMModeTransitions,
		r.PDSPeersActive,
		r.PDSPeerRSSI,
		r.PDSPeerSNR,
		r.PBDedupHits,
		r.PBSpoolDepth,
		r.ROSRetryExhausted,
		r.ROSReceiptRTT,
	)
	return r
}

// Serve starts an HTTP server exposing the registry at /metrics on addr.
func (r *Registry) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	r.server = &http.Server{Handler: mux}
	go r.server.Serve(ln)
	return nil
}

// Shutdown gracefully stops the metrics HTTP server, if running.
func (r *Registry) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
