package ros

import (
	"sync"

	"github.com/natak-mesh/overlay-bridge/internal/statefile"
)

// stateCache mirrors pb's stateCache: keep the last successfully
// parsed node_status/peer_discovery documents, never wiping a good
// value on a read or parse failure, per spec.md §7.
type stateCache struct {
	mu     sync.Mutex
	status nodeStatusFile
	peers  peerDiscoveryFile

	statusPath string
	peersPath  string
}

func newStateCache(statusPath, peersPath string) *stateCache {
	return &stateCache{statusPath: statusPath, peersPath: peersPath}
}

func (c *stateCache) refresh() (nodeStatusFile, peerDiscoveryFile) {
	var status nodeStatusFile
	if err := statefile.ReadJSON(c.statusPath, &status); err == nil {
		c.mu.Lock()
		c.status = status
		c.mu.Unlock()
	}

	var peers peerDiscoveryFile
	if err := statefile.ReadJSON(c.peersPath, &peers); err == nil {
		c.mu.Lock()
		c.peers = peers
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.peers
}
