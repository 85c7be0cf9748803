// Package pds implements the Peer Discovery Service, spec.md §4.4: it
// owns this node's overlay identity and inbound destination, announces
// on a timer, and maintains the peer map backing peer_discovery.
//
// Grounded on
// _examples/original_source/reticulum_mesh/rns_stats/rns_monitor.py's
// AnnounceHandler (the announce-callback shape, including RSSI/SNR
// capture) and the peer-upsert/timeout logic described in spec.md §4.4.
package pds

import "time"

// Peer is one row of the in-memory peer map, spec.md §5's Peer type.
type Peer struct {
	Hostname                string
	DestinationFingerprint  []byte
	LastSeen                time.Time
}

// PeerDiscoveryDoc is the JSON document PDS writes, per spec.md §6.
type PeerDiscoveryDoc struct {
	Timestamp int64                     `json:"timestamp"`
	Peers     map[string]PeerDiscoveryRow `json:"peers"`
}

// PeerDiscoveryRow is one entry of PeerDiscoveryDoc.Peers.
type PeerDiscoveryRow struct {
	DestinationHash string `json:"destination_hash"`
	LastSeen        int64  `json:"last_seen"`
}
