// Package ros implements the Reliable Overlay Sender, spec.md §4.6:
// a ~1Hz loop that drains pending/ onto the overlay network toward
// every SLOW, known peer, retries with backoff until delivery is
// confirmed or attempts are exhausted, and writes overlay-received
// packets into incoming/.
//
// Grounded on spec.md §4.6's six-step tick and
// _examples/original_source/.../new_implementation's send/retry/receipt
// bookkeeping, generalized from its per-peer loop into the
// per-file/per-target DeliveryRecord shape spec.md §5 names.
package ros

import (
	"sort"
	"time"
)

// DeliveryTarget tracks one (file, peer) delivery attempt, spec.md §5.
type DeliveryTarget struct {
	SentAt            time.Time
	Delivered         bool
	RetryCount        int
	NextEligibleAt    time.Time
	LastReceiptPrompt time.Time
}

// DeliveryRecord tracks every peer a spooled file has been sent to.
type DeliveryRecord struct {
	Targets map[string]*DeliveryTarget // hostname -> target
}

// nodeStatusFile and peerDiscoveryFile mirror the wire shapes ROS
// reads but never writes — the same read-only-mirror choice pb makes,
// so ROS doesn't need to import internal/lqm or internal/pds just to
// parse their output files.
type nodeStatusFile struct {
	Nodes map[string]nodeRow `json:"nodes"`
}

type nodeRow struct {
	Hostname string `json:"hostname"`
	Mode     string `json:"mode"`
}

type peerDiscoveryFile struct {
	Peers map[string]peerRow `json:"peers"`
}

type peerRow struct {
	DestinationHash string `json:"destination_hash"`
}

// modeByHostname projects status.Nodes — keyed by MAC address, per
// spec.md §6 — into a hostname -> mode map, so it can be intersected
// with peers.Peers, which is keyed by hostname.
func modeByHostname(status nodeStatusFile) map[string]string {
	out := make(map[string]string, len(status.Nodes))
	for _, row := range status.Nodes {
		out[row.Hostname] = row.Mode
	}
	return out
}

// targetSet returns the sorted hostnames that are SLOW in status and
// present in peers, spec.md §4.6 step 2a.
func targetSet(status nodeStatusFile, peers peerDiscoveryFile) []string {
	modes := modeByHostname(status)
	var out []string
	for hostname := range peers.Peers {
		if modes[hostname] == "SLOW" {
			out = append(out, hostname)
		}
	}
	sort.Strings(out)
	return out
}
