package ros

import (
	"context"
	"encoding/hex"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/natak-mesh/overlay-bridge/internal/config"
	"github.com/natak-mesh/overlay-bridge/internal/metrics"
	"github.com/natak-mesh/overlay-bridge/internal/overlaytest"
	"github.com/natak-mesh/overlay-bridge/internal/pds"
	"github.com/natak-mesh/overlay-bridge/internal/spool"
	"github.com/natak-mesh/overlay-bridge/internal/statefile"
	"github.com/natak-mesh/overlay-bridge/pkg/overlay"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const (
	testAppName = "natak-bridge"
	testAspect  = "overlay"
)

type rig struct {
	svc     *Service
	sp      *spool.Spool
	net     *overlaytest.Network
	tA      *overlaytest.Transport
	tB      *overlaytest.Transport
	destB   overlay.Destination
	mock    *clock.Mock
	reg     *metrics.Registry
	statusP string
	peersP  string
}

// newRig wires node A (the Service under test) and node B (a peer)
// onto a shared overlaytest.Network, and makes sure tA has already
// cached B's identity the way a real announce would leave it —
// without depending on internal/pds's own announce timing.
func newRig(t *testing.T) *rig {
	t.Helper()
	dir := t.TempDir()

	net := overlaytest.NewNetwork()
	tA := overlaytest.NewTransport(net)
	tB := overlaytest.NewTransport(net)

	idB, err := tB.CreateIdentity()
	require.NoError(t, err)
	destB, err := tB.CreateDestination(idB, overlay.DirectionIn, testAppName, testAspect)
	require.NoError(t, err)
	require.NoError(t, tA.RegisterAnnounceHandler(testAppName+"."+testAspect, func([]byte, overlay.Identity, []byte) {}))
	require.NoError(t, tB.Announce(destB, []byte("nodeB")))

	cfg := config.ROSConfig{
		SpoolDir:            filepath.Join(dir, "spool"),
		NodeStatusPath:      filepath.Join(dir, "node_status.json"),
		PeerDiscoveryPath:   filepath.Join(dir, "peer_discovery.json"),
		SendSpacingDelay:    2 * time.Second,
		RetryInitialDelay:   1 * time.Second,
		RetryBackoffFactor:  2.0,
		RetryMaxDelay:       30 * time.Second,
		RetryMaxAttempts:    3,
		RetryJitter:         0,
		ReceiptPromptPeriod: time.Second,
		PacketTimeout:       10 * time.Second,
	}

	sp, err := spool.Open(cfg.SpoolDir)
	require.NoError(t, err)

	pdsCfg := config.PDSConfig{AppName: testAppName, Aspect: testAspect, AnnounceInterval: time.Hour, PeerTimeout: time.Hour}
	pdsService := pds.New(pdsCfg, "nodeA", tA, clock.New(), slog.Default(), nil)
	require.NoError(t, pdsService.Start(context.Background()))
	t.Cleanup(func() { pdsService.Stop(context.Background()) })

	mock := clock.NewMock()
	reg := metrics.New()
	svc := New(cfg, testAppName, testAspect, tA, pdsService, sp, mock, slog.Default(), reg)

	return &rig{svc: svc, sp: sp, net: net, tA: tA, tB: tB, destB: destB, mock: mock, reg: reg, statusP: cfg.NodeStatusPath, peersP: cfg.PeerDiscoveryPath}
}

func (r *rig) writeState(t *testing.T, mode string) {
	t.Helper()
	require.NoError(t, statefile.WriteJSON(r.statusP, nodeStatusFile{Nodes: map[string]nodeRow{
		"aa:bb:cc:dd:ee:02": {Hostname: "nodeB", Mode: mode},
	}}))
	require.NoError(t, statefile.WriteJSON(r.peersP, peerDiscoveryFile{Peers: map[string]peerRow{
		"nodeB": {DestinationHash: hex.EncodeToString(r.destB.Fingerprint())},
	}}))
}

func TestFirstSendDeliversToSlowKnownPeerAndMovesToSentBuffer(t *testing.T) {
	r := newRig(t)
	r.writeState(t, "SLOW")

	var received []byte
	require.NoError(t, r.tB.RegisterPacketCallback(r.destB, func(p []byte) { received = p }))

	_, err := r.sp.WriteNew(spool.Pending, []byte("hello"))
	require.NoError(t, err)

	require.NoError(t, r.svc.Start(context.Background()))
	defer r.svc.Stop(context.Background())

	r.mock.Add(time.Second)
	require.Eventually(t, func() bool {
		pending, _ := r.sp.List(spool.Pending)
		sentBuf, _ := r.sp.List(spool.SentBuffer)
		return len(pending) == 0 && len(sentBuf) == 1
	}, time.Second, time.Millisecond)

	require.Equal(t, []byte("hello"), received)
}

func TestFirstSendLeavesFileInPendingWhenNoTargets(t *testing.T) {
	r := newRig(t)
	r.writeState(t, "FAST") // no SLOW peers, so the target set is empty

	_, err := r.sp.WriteNew(spool.Pending, []byte("hello"))
	require.NoError(t, err)

	require.NoError(t, r.svc.Start(context.Background()))
	defer r.svc.Stop(context.Background())

	r.mock.Add(time.Second)
	time.Sleep(20 * time.Millisecond)

	pending, _ := r.sp.List(spool.Pending)
	require.Len(t, pending, 1)
}

func TestSentTargetStaysUndeliveredUntilReceiptFires(t *testing.T) {
	r := newRig(t)
	r.writeState(t, "SLOW")
	require.NoError(t, r.tB.RegisterPacketCallback(r.destB, func([]byte) {}))

	_, err := r.sp.WriteNew(spool.Pending, []byte("hello"))
	require.NoError(t, err)

	require.NoError(t, r.svc.Start(context.Background()))
	defer r.svc.Stop(context.Background())

	r.mock.Add(time.Second)
	require.Eventually(t, func() bool {
		sentBuf, _ := r.sp.List(spool.SentBuffer)
		return len(sentBuf) == 1
	}, time.Second, time.Millisecond)

	snap := r.svc.Snapshot()
	require.Len(t, snap, 1)
	for _, rec := range snap {
		target := rec.Targets["nodeB"]
		require.NotNil(t, target)
		require.False(t, target.Delivered)
	}
}

func TestRetryExhaustionRemovesFileAndIncrementsMetric(t *testing.T) {
	r := newRig(t)
	r.svc.cfg.RetryMaxAttempts = 1
	r.writeState(t, "SLOW")

	require.NoError(t, r.tB.RegisterPacketCallback(r.destB, func([]byte) {}))

	_, err := r.sp.WriteNew(spool.Pending, []byte("hello"))
	require.NoError(t, err)

	require.NoError(t, r.svc.Start(context.Background()))
	defer r.svc.Stop(context.Background())

	r.mock.Add(time.Second)
	require.Eventually(t, func() bool {
		sentBuf, _ := r.sp.List(spool.SentBuffer)
		return len(sentBuf) == 1
	}, time.Second, time.Millisecond)

	// RetryMaxAttempts is 1 and the target is never delivered, so the
	// retry pass's single attempt already exhausts it. Keep advancing
	// the mock clock past both SendSpacingDelay and RetryInitialDelay
	// until the cleanup pass removes the file.
	require.Eventually(t, func() bool {
		r.mock.Add(time.Second)
		sentBuf, _ := r.sp.List(spool.SentBuffer)
		return len(sentBuf) == 0
	}, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, float64(1), testutil.ToFloat64(r.reg.ROSRetryExhausted))
}

func TestIncomingPacketWrittenToSpool(t *testing.T) {
	r := newRig(t)
	r.writeState(t, "FAST")

	require.NoError(t, r.svc.Start(context.Background()))
	defer r.svc.Stop(context.Background())

	inbound := r.svc.inbound
	require.NotNil(t, inbound)

	_, err := r.tB.SendWithReceipt(inbound, []byte("overlay payload"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		names, _ := r.sp.List(spool.Incoming)
		return len(names) == 1
	}, time.Second, time.Millisecond)
}

func TestNextBackoffGrowsAndCaps(t *testing.T) {
	d := nextBackoff(0, time.Second, 2.0, 30*time.Second, 0)
	require.Equal(t, time.Second, d)

	d = nextBackoff(1, time.Second, 2.0, 30*time.Second, 0)
	require.Equal(t, 2*time.Second, d)

	d = nextBackoff(10, time.Second, 2.0, 30*time.Second, 0)
	require.Equal(t, 30*time.Second, d)
}

func TestTargetSetIsSortedAndRequiresBothSlowAndKnownPeer(t *testing.T) {
	status := nodeStatusFile{Nodes: map[string]nodeRow{
		"aa:bb:cc:dd:ee:01": {Hostname: "zeta", Mode: "SLOW"},
		"aa:bb:cc:dd:ee:02": {Hostname: "alpha", Mode: "SLOW"},
		"aa:bb:cc:dd:ee:03": {Hostname: "beta", Mode: "FAST"},
		"aa:bb:cc:dd:ee:04": {Hostname: "gamma", Mode: "SLOW"},
	}}
	peers := peerDiscoveryFile{Peers: map[string]peerRow{
		"zeta":  {DestinationHash: "aa"},
		"alpha": {DestinationHash: "bb"},
		"beta":  {DestinationHash: "cc"},
	}}
	require.Equal(t, []string{"alpha", "zeta"}, targetSet(status, peers))
}
