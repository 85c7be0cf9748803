// Package pb implements the Packet Bridge, spec.md §4.5: it moves
// multicast traffic between the local bridge interface and the
// overlay spool, compressing/decompressing and deduplicating in both
// directions, and only does overlay-bound work while some peer is
// SLOW and known to PDS.
//
// Grounded on
// _examples/original_source/.../atak_module/atak_handler.py: per-packet
// local/remote classification, the compress-on-ingress /
// decompress-on-egress flow, and the quiescence purge.
package pb

// nodeStatusFile mirrors the subset of lqm.NodeStatusDoc's wire shape
// PB needs to read. Kept as PB's own type rather than importing
// internal/lqm, since PB only ever reads this file — it never owns or
// writes node_status.
type nodeStatusFile struct {
	Timestamp int64              `json:"timestamp"`
	Nodes     map[string]nodeRow `json:"nodes"`
}

type nodeRow struct {
	Hostname string `json:"hostname"`
	Mode     string `json:"mode"`
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

// peerDiscoveryFile mirrors the subset of pds.PeerDiscoveryDoc's wire
// shape PB needs to read, for the same reason.
type peerDiscoveryFile struct {
	Timestamp int64              `json:"timestamp"`
	Peers     map[string]peerRow `json:"peers"`
}

type peerRow struct {
	DestinationHash string `json:"destination_hash"`
	LastSeen        int64  `json:"last_seen"`
}

// hasFallbackWork reports spec.md §4.5 ingress step 3's gate: true if
// at least one hostname is SLOW in status and also present in peers
// (i.e. ROS has somewhere to send it).
func hasFallbackWork(status nodeStatusFile, peers peerDiscoveryFile) bool {
	modes := modeByHostname(status)
	for hostname := range peers.Peers {
		if modes[hostname] == "SLOW" {
			return true
		}
	}
	return false
}

// allRemoteFast reports spec.md §4.5's quiescence condition: true if
// node_status names no SLOW node at all.
func allRemoteFast(status nodeStatusFile) bool {
	for _, row := range status.Nodes {
		if row.Mode == "SLOW" {
			return false
		}
	}
	return true
}
