// Package telemetry defines the pluggable mesh-layer originator
// telemetry source LQM samples once per second. Per spec.md §9,
// "several mesh-establishment variants exist; only the telemetry
// shape consumed by LQM matters" — Source is that shape, with one
// production implementation in the batman subpackage.
package telemetry

import "time"

// Sample is one remote node's most recent originator-message reading.
type Sample struct {
	MAC            string
	LastSeen       time.Duration // time since the last OGM was heard
	Throughput     *float64      // nil if the source doesn't report it
	NextHop        *string       // nil if the source doesn't report it
}

// Source samples mesh-layer telemetry for every reachable node. A
// failing or absent source returns an empty map, never an error that
// would stop LQM — per spec.md §4.3, missing telemetry means "treat
// all remote nodes as having seconds_since_last_ogm = +Inf", which LQM
// achieves simply by finding no entry for a given MAC.
type Source interface {
	Sample() (map[string]Sample, error)
}
