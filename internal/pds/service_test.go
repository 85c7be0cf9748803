package pds

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/log"
	"github.com/natak-mesh/overlay-bridge/internal/overlaytest"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, hostname string, net *overlaytest.Network, clk clock.Clock) *Service {
	dir := t.TempDir()
	cfg := config.PDSConfig{
		AppName:                    "atak",
		Aspect:                     "cot",
		PeerDiscoveryPath:          filepath.Join(dir, "peer_discovery.json"),
		AnnounceInterval:           time.Minute,
		PeerTimeout:                5 * time.Minute,
		ResponsiveAnnounceDelayMin: 500 * time.Millisecond,
		ResponsiveAnnounceDelayMax: 1500 * time.Millisecond,
	}
	return New(cfg, hostname, overlaytest.NewTransport(net), clk, log.Discard(), nil)
}

func TestStartWritesEmptyPeerDiscoveryFile(t *testing.T) {
	net := overlaytest.NewNetwork()
	s := newTestService(t, "node-a", net, clock.NewMock())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	data, err := os.ReadFile(s.cfg.PeerDiscoveryPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `"peers": {}`)
}

func TestAnnounceHandlerIgnoresSelf(t *testing.T) {
	net := overlaytest.NewNetwork()
	clk := clock.NewMock()
	s := newTestService(t, "node-a", net, clk)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	// An announce reaches this node's own handler too; announcing
	// synchronously here makes sure it has, and it must not end up
	// listed as a peer.
	s.announce()
	require.Empty(t, s.Snapshot().Peers)
}

func TestAnnounceHandlerUpsertsNewPeer(t *testing.T) {
	net := overlaytest.NewNetwork()
	clk := clock.NewMock()

	a := newTestService(t, "node-a", net, clk)
	b := newTestService(t, "node-b", net, clk)
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))
	defer a.Stop(context.Background())
	defer b.Stop(context.Background())

	require.Eventually(t, func() bool {
		return len(a.Snapshot().Peers) == 1
	}, time.Second, time.Millisecond)

	peer, ok := a.Snapshot().Peers["node-b"]
	require.True(t, ok)
	require.NotEmpty(t, peer.DestinationHash)
}

func TestMalformedAppDataDiscarded(t *testing.T) {
	net := overlaytest.NewNetwork()
	clk := clock.NewMock()
	s := newTestService(t, "node-a", net, clk)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	s.handleAnnounce([]byte("some-other-fp"), &fakeIdentity{}, []byte("   "))
	require.Empty(t, s.Snapshot().Peers)
}

func TestMaintenanceRemovesStalePeers(t *testing.T) {
	net := overlaytest.NewNetwork()
	var clk clock.Clock = clock.NewMock()
	s := newTestService(t, "node-a", net, clk)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	s.handleAnnounce([]byte("remote-fp"), &fakeIdentity{}, []byte("node-b"))
	require.Len(t, s.Snapshot().Peers, 1)

	clk.(*clock.Mock).Add(s.cfg.PeerTimeout + time.Second)
	s.runMaintenance()

	require.Empty(t, s.Snapshot().Peers)
}

func TestExistingPeerRefreshesLastSeen(t *testing.T) {
	net := overlaytest.NewNetwork()
	var clk clock.Clock = clock.NewMock()
	s := newTestService(t, "node-a", net, clk)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	s.handleAnnounce([]byte("remote-fp"), &fakeIdentity{}, []byte("node-b"))
	first := s.Snapshot().Peers["node-b"].LastSeen

	clk.(*clock.Mock).Add(time.Minute)
	s.handleAnnounce([]byte("remote-fp"), &fakeIdentity{}, []byte("node-b"))
	second := s.Snapshot().Peers["node-b"].LastSeen

	require.Greater(t, second, first)
}

// fakeIdentity is a minimal overlay.Identity for tests that invoke
// handleAnnounce directly without a real overlaytest.Transport round trip.
type fakeIdentity struct{}

func (f *fakeIdentity) Fingerprint() []byte { return []byte("unused") }
