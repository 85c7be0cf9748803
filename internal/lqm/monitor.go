package lqm

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/internal/statefile"
	"github.com/natak-mesh/overlay-bridge/internal/telemetry"
)

// Monitor runs the spec.md §4.3 hysteresis loop: once per
// SampleInterval it samples telemetry for every node named in the
// hostname map, updates each node's consecutive failure/good
// counters, flips FAST/SLOW on threshold crossing, and rewrites
// NodeStatusPath in full.
type Monitor struct {
	cfg     config.LQMConfig
	source  telemetry.Source
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Registry // nil-safe; may be nil outside of production wiring

	mu    sync.Mutex
	nodes map[string]*nodeState
}

// New constructs a Monitor. hostnames is the static remote-node map
// read once at startup, per spec.md §4.3's "hostname map is read once
// at process start; the operator must restart LQM to pick up changes."
func New(cfg config.LQMConfig, source telemetry.Source, hostnames map[string]HostEntry, clk clock.Clock, logger *slog.Logger, reg *metrics.Registry) *Monitor {
	nodes := make(map[string]*nodeState, len(hostnames))
	for mac, h := range hostnames {
		nodes[mac] = &nodeState{
			Hostname:        h.Hostname,
			IPv4:            h.IPv4,
			LastSeenSeconds: math.Inf(1),
			Mode:            Fast,
		}
	}

	m := &Monitor{
		cfg:     cfg,
		source:  source,
		clock:   clk,
		logger:  logger,
		metrics: reg,
		nodes:   nodes,
	}
	m.restoreFromDisk()
	return m
}

// LoadHostnameMap reads the static MAC-to-hostname JSON map LQM is
// configured against. Grounded on enhanced_ogm_monitor.py's
// load_hostname_mapping.
func LoadHostnameMap(path string) (map[string]HostEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string]HostEntry
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// restoreFromDisk seeds counters and mode from an existing
// node_status file, if readable, so a restart doesn't force every
// node through a fresh FAILURE_COUNT before SLOW is recognized again.
// Per spec.md §4.3, an unreadable or missing file just leaves every
// node at its New-constructed FAST/zero-counter default.
func (m *Monitor) restoreFromDisk() {
	var doc NodeStatusDoc
	if err := statefile.ReadJSON(m.cfg.NodeStatusPath, &doc); err != nil {
		return
	}
	for mac, row := range doc.Nodes {
		n, ok := m.nodes[mac]
		if !ok {
			continue
		}
		n.Mode = row.Mode
		n.ConsecutiveFailures = row.ConsecutiveFailures
		n.ConsecutiveGood = row.ConsecutiveGood
	}
}

// Run drives the sample-update-write loop until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := m.clock.Ticker(m.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Monitor) tick() {
	samples, err := m.source.Sample()
	if err != nil {
		m.logger.Warn("telemetry sample failed", "error", err)
		samples = nil
	}

	m.mu.Lock()
	for mac, n := range m.nodes {
		sample, seen := samples[mac]
		m.updateNode(n, sample, seen)
	}
	doc := m.snapshotLocked()
	m.mu.Unlock()

	if err := statefile.WriteJSON(m.cfg.NodeStatusPath, doc); err != nil {
		m.logger.Warn("writing node_status failed", "error", err)
	}
}

// updateNode applies one sample's worth of hysteresis to n. Grounded
// on enhanced_ogm_monitor.py's update_node_status: failures and good
// samples are mutually exclusive per tick — each sample increments its
// own counter and resets the opposing one to zero — and the mode only
// flips once its respective counter reaches the configured threshold.
func (m *Monitor) updateNode(n *nodeState, sample telemetry.Sample, seen bool) {
	if seen {
		n.LastSeenSeconds = sample.LastSeen.Seconds()
		n.Throughput = sample.Throughput
		n.NextHop = sample.NextHop
	} else {
		n.LastSeenSeconds = math.Inf(1)
		n.Throughput = nil
		n.NextHop = nil
	}

	if n.LastSeenSeconds > m.cfg.FailureThreshold.Seconds() {
		n.ConsecutiveFailures++
		n.ConsecutiveGood = 0
	} else {
		n.ConsecutiveGood++
		n.ConsecutiveFailures = 0
	}

	switch n.Mode {
	case Fast:
		if n.ConsecutiveFailures >= m.cfg.FailureCount {
			n.Mode = Slow
			m.recordModeTransition(n.Mode)
		}
	case Slow:
		if n.ConsecutiveGood >= m.cfg.RecoveryCount {
			n.Mode = Fast
			m.recordModeTransition(n.Mode)
		}
	}
}

func (m *Monitor) recordModeTransition(mode LinkMode) {
	if m.metrics != nil {
		m.metrics.LQMModeTransitions.WithLabelValues(string(mode)).Inc()
	}
}

func (m *Monitor) snapshotLocked() NodeStatusDoc {
	doc := NodeStatusDoc{
		Timestamp: m.clock.Now().Unix(),
		Nodes:     make(map[string]NodeStatusRow, len(m.nodes)),
	}
	for mac, n := range m.nodes {
		lastSeen := n.LastSeenSeconds
		if math.IsInf(lastSeen, 1) {
			// encoding/json rejects +Inf; the largest finite float keeps
			// "never heard" above any FailureThreshold in the written file.
			lastSeen = math.MaxFloat64
		}
		doc.Nodes[mac] = NodeStatusRow{
			Hostname:            n.Hostname,
			IPv4:                n.IPv4,
			LastSeenSeconds:     lastSeen,
			Mode:                n.Mode,
			ConsecutiveFailures: n.ConsecutiveFailures,
			ConsecutiveGood:     n.ConsecutiveGood,
			Throughput:          n.Throughput,
			NextHop:             n.NextHop,
		}
	}
	return doc
}

// Snapshot returns the current in-memory status, mainly for tests and
// for the metrics exporter to read without going through the file.
func (m *Monitor) Snapshot() NodeStatusDoc {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}
