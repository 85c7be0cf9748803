package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyOptionsOverridesEveryField(t *testing.T) {
	cfg := Default()

	cfg.ApplyOptions(
		WithHostname("node7"),
		WithSpoolDir("/tmp/spool"),
		WithNodeStatusPath("/tmp/node_status.json"),
		WithPeerDiscoveryPath("/tmp/peer_discovery.json"),
		WithHostnameMapPath("/tmp/hostnames.json"),
		WithBridgeInterface("br1"),
		WithDictionaryPath("/tmp/dict.bin"),
		WithMetricsAddr(":9999"),
		WithDedupCapacity(4096),
	)

	require.Equal(t, "node7", cfg.Hostname)
	require.Equal(t, "/tmp/spool", cfg.PB.SpoolDir)
	require.Equal(t, "/tmp/spool", cfg.ROS.SpoolDir)
	require.Equal(t, "/tmp/node_status.json", cfg.LQM.NodeStatusPath)
	require.Equal(t, "/tmp/node_status.json", cfg.PB.NodeStatusPath)
	require.Equal(t, "/tmp/node_status.json", cfg.ROS.NodeStatusPath)
	require.Equal(t, "/tmp/peer_discovery.json", cfg.PDS.PeerDiscoveryPath)
	require.Equal(t, "/tmp/peer_discovery.json", cfg.PB.PeerDiscoveryPath)
	require.Equal(t, "/tmp/peer_discovery.json", cfg.ROS.PeerDiscoveryPath)
	require.Equal(t, "/tmp/hostnames.json", cfg.LQM.HostnameMapPath)
	require.Equal(t, "br1", cfg.PB.Interface)
	require.Equal(t, "/tmp/dict.bin", cfg.Codec.DictionaryPath)
	require.Equal(t, ":9999", cfg.Metrics.ListenAddr)
	require.Equal(t, 4096, cfg.Dedup.Capacity)
}

func TestApplyOptionsWithNoOptionsLeavesDefaultsUnchanged(t *testing.T) {
	cfg := Default()
	want := *cfg
	cfg.ApplyOptions()
	require.Equal(t, want, *cfg)
}
