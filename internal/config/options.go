package config

// ConfigOption mutates a Config in place. Grounded on the teacher's
// internal/discovery/mdns/config.go ConfigOption/ApplyOptions pattern,
// covering the same operator-facing fields FromEnv exposes, for
// callers assembling a Config programmatically (tests, cmd/* overrides)
// rather than through OVB_-prefixed environment variables.
type ConfigOption func(*Config)

// ApplyOptions applies every opt to c in order.
func (c *Config) ApplyOptions(opts ...ConfigOption) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithHostname overrides the local node's hostname.
func WithHostname(hostname string) ConfigOption {
	return func(c *Config) {
		c.Hostname = hostname
	}
}

// WithSpoolDir overrides the three-directory spool root shared by PB
// and ROS.
func WithSpoolDir(dir string) ConfigOption {
	return func(c *Config) {
		c.PB.SpoolDir = dir
		c.ROS.SpoolDir = dir
	}
}

// WithNodeStatusPath overrides node_status.json's path across every
// component that reads or writes it.
func WithNodeStatusPath(path string) ConfigOption {
	return func(c *Config) {
		c.LQM.NodeStatusPath = path
		c.PB.NodeStatusPath = path
		c.ROS.NodeStatusPath = path
	}
}

// WithPeerDiscoveryPath overrides peer_discovery.json's path across
// every component that reads or writes it.
func WithPeerDiscoveryPath(path string) ConfigOption {
	return func(c *Config) {
		c.PDS.PeerDiscoveryPath = path
		c.PB.PeerDiscoveryPath = path
		c.ROS.PeerDiscoveryPath = path
	}
}

// WithHostnameMapPath overrides LQM's static MAC-to-hostname map path.
func WithHostnameMapPath(path string) ConfigOption {
	return func(c *Config) {
		c.LQM.HostnameMapPath = path
	}
}

// WithBridgeInterface overrides PB's local multicast interface.
func WithBridgeInterface(iface string) ConfigOption {
	return func(c *Config) {
		c.PB.Interface = iface
	}
}

// WithDictionaryPath overrides the codec's pre-trained dictionary path.
func WithDictionaryPath(path string) ConfigOption {
	return func(c *Config) {
		c.Codec.DictionaryPath = path
	}
}

// WithMetricsAddr overrides the Prometheus exporter's listen address.
// An empty addr disables the exporter, per metrics.Module's own check.
func WithMetricsAddr(addr string) ConfigOption {
	return func(c *Config) {
		c.Metrics.ListenAddr = addr
	}
}

// WithDedupCapacity overrides the fingerprint ring's capacity.
func WithDedupCapacity(capacity int) ConfigOption {
	return func(c *Config) {
		c.Dedup.Capacity = capacity
	}
}
