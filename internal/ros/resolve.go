package ros

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/natak-mesh/overlay-bridge/pkg/overlay"
)

// destResolver turns a peer_discovery hostname entry into an outbound
// overlay.Destination, caching the result per hostname so a file with
// many targets doesn't re-run CreateDestination on every send.
//
// The critical contract from spec.md §4.4 applies here too: the
// fingerprint handed to RecallIdentity is exactly peer_discovery's
// destination_hash, decoded from hex, never derived any other way.
type destResolver struct {
	transport overlay.Transport
	appName   string
	aspect    string

	mu    sync.Mutex
	cache map[string]resolved // hostname -> last resolved destination
}

type resolved struct {
	hash string // the destination_hash this Destination was built from
	dest overlay.Destination
}

func newDestResolver(transport overlay.Transport, appName, aspect string) *destResolver {
	return &destResolver{transport: transport, appName: appName, aspect: aspect, cache: make(map[string]resolved)}
}

// Resolve returns the Destination for hostname given its current
// peer_discovery row, rebuilding it if the destination_hash has
// changed since the last call (the peer re-announced with a new
// fingerprint) or if this is the first send to this hostname.
func (r *destResolver) Resolve(hostname string, row peerRow) (overlay.Destination, error) {
	r.mu.Lock()
	if cached, ok := r.cache[hostname]; ok && cached.hash == row.DestinationHash {
		r.mu.Unlock()
		return cached.dest, nil
	}
	r.mu.Unlock()

	fp, err := hex.DecodeString(row.DestinationHash)
	if err != nil {
		return nil, fmt.Errorf("ros: decode destination_hash for %s: %w", hostname, err)
	}

	identity, ok := r.transport.RecallIdentity(fp)
	if !ok {
		return nil, fmt.Errorf("ros: overlay transport has no cached identity for %s", hostname)
	}

	dest, err := r.transport.CreateDestination(identity, overlay.DirectionOut, r.appName, r.aspect)
	if err != nil {
		return nil, fmt.Errorf("ros: create outbound destination for %s: %w", hostname, err)
	}

	r.mu.Lock()
	r.cache[hostname] = resolved{hash: row.DestinationHash, dest: dest}
	r.mu.Unlock()

	return dest, nil
}

// peerFingerprint decodes a hostname's current destination_hash, used by
// the receipt-processing prompt (spec.md §4.6 step 4) which calls
// RecallIdentity directly rather than sending anything.
func peerFingerprint(row peerRow) ([]byte, error) {
	return hex.DecodeString(row.DestinationHash)
}
