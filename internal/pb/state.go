package pb

import (
	"net"
	"sync"

	"github.com/natak-mesh/overlay-bridge/internal/statefile"
)

// stateCache holds the last successfully parsed node_status and
// peer_discovery documents. Per spec.md §7, a failed read or parse
// must never wipe out the previous value — it just skips the update.
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

// refresh re-reads both files, keeping whichever cached value still
// stands on a read/parse failure, and returns the resulting snapshot.
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

// localAddressSet is the "cached set of locally-attached addresses"
// spec.md §4.5 step 1 classifies ingress packet sources against,
// built once at startup from the configured bridge interface.
//
// Grounded on atak_handler.py's get_br0_ip, which shells out to
// `ip addr show br0`; net.InterfaceByName/Addrs is the stdlib
// substitution — no pack dependency wraps interface enumeration more
// idiomatically, so this one concern stays on the standard library
// (recorded in DESIGN.md).
type localAddressSet struct {
	addrs map[string]struct{}
}

func newLocalAddressSet(ifaceName string) (*localAddressSet, error) {
	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, err
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		set[ipNet.IP.String()] = struct{}{}
	}
	return &localAddressSet{addrs: set}, nil
}

func (s *localAddressSet) isLocal(ip net.IP) bool {
	_, ok := s.addrs[ip.String()]
	return ok
}
