package config

import (
	"os"
	"strconv"
)

// FromEnv returns Default() with any OVB_-prefixed overrides applied.
// Only the overrides an operator is realistically expected to need at
// deployment time are exposed; the rest of the tree (multicast groups,
// retry schedule) is compiled-in per spec.md's documented defaults and
// changed by editing Config directly for non-standard deployments.
func FromEnv() *Config {
	cfg := Default()

	if v := os.Getenv(EnvPrefix + "HOSTNAME"); v != "" {
		cfg.Hostname = v
	} else if h, err := os.Hostname(); err == nil {
		cfg.Hostname = h
	}

	if v := os.Getenv(EnvPrefix + "SPOOL_DIR"); v != "" {
		cfg.PB.SpoolDir = v
		cfg.ROS.SpoolDir = v
	}
	if v := os.Getenv(EnvPrefix + "NODE_STATUS_PATH"); v != "" {
		cfg.LQM.NodeStatusPath = v
		cfg.PB.NodeStatusPath = v
		cfg.ROS.NodeStatusPath = v
	}
	if v := os.Getenv(EnvPrefix + "PEER_DISCOVERY_PATH"); v != "" {
		cfg.PDS.PeerDiscoveryPath = v
		cfg.PB.PeerDiscoveryPath = v
		cfg.ROS.PeerDiscoveryPath = v
	}
	if v := os.Getenv(EnvPrefix + "HOSTNAME_MAP_PATH"); v != "" {
		cfg.LQM.HostnameMapPath = v
	}
	if v := os.Getenv(EnvPrefix + "BRIDGE_INTERFACE"); v != "" {
		cfg.PB.Interface = v
	}
	if v := os.Getenv(EnvPrefix + "DICTIONARY_PATH"); v != "" {
		cfg.Codec.DictionaryPath = v
	}
	if v := os.Getenv(EnvPrefix + "METRICS_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "DEDUP_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dedup.Capacity = n
		}
	}

	return cfg
}
