package pb

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/natak-mesh/overlay-bridge/internal/statefile"
	"github.com/stretchr/testify/require"
)

func TestStateCacheKeepsLastGoodOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	statusPath := filepath.Join(dir, "node_status.json")
	peersPath := filepath.Join(dir, "peer_discovery.json")

	require.NoError(t, statefile.WriteJSON(statusPath, nodeStatusFile{Nodes: map[string]nodeRow{"a": {Mode: "SLOW"}}}))
	require.NoError(t, statefile.WriteJSON(peersPath, peerDiscoveryFile{Peers: map[string]peerRow{"a": {}}}))

	c := newStateCache(statusPath, peersPath)
	status, peers := c.refresh()
	require.Equal(t, "SLOW", status.Nodes["a"].Mode)
	require.Contains(t, peers.Peers, "a")

	// Corrupt the file: refresh must retain the previously cached value.
	require.NoError(t, os.WriteFile(statusPath, []byte("not json"), 0o644))
	status2, _ := c.refresh()
	require.Equal(t, "SLOW", status2.Nodes["a"].Mode)
}

func TestLocalAddressSetClassifiesLoopback(t *testing.T) {
	set, err := newLocalAddressSet("lo")
	if err != nil {
		t.Skipf("no loopback interface named lo on this host: %v", err)
	}
	require.True(t, set.isLocal(net.ParseIP("127.0.0.1")))
	require.False(t, set.isLocal(net.ParseIP("203.0.113.5")))
}
