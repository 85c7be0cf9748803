// Package config composes the per-component configuration sections of
// the overlay bridge into one Config value, constructed once at
// process startup and passed by reference to every component — the
// Go shape of the teacher's "module-level global state becomes a
// Config value" guidance.
package config

import "time"

// Config is the root configuration, read once per process. Each
// daemon (cmd/lqmd, cmd/overlayd, cmd/pbd) only consumes the sections
// relevant to the components it hosts.
type Config struct {
	Hostname string

	LQM     LQMConfig
	PDS     PDSConfig
	PB      PBConfig
	ROS     ROSConfig
	Codec   CodecConfig
	Dedup   DedupConfig
	Metrics MetricsConfig
}

// LQMConfig configures the Link-Quality Monitor, spec.md §4.3.
type LQMConfig struct {
	HostnameMapPath  string
	NodeStatusPath   string
	SampleInterval   time.Duration
	FailureThreshold time.Duration
	FailureCount     int
	RecoveryCount    int
}

// PDSConfig configures the Peer Discovery Service, spec.md §4.4.
type PDSConfig struct {
	AppName                    string
	Aspect                     string
	PeerDiscoveryPath          string
	AnnounceInterval           time.Duration
	PeerTimeout                time.Duration
	ResponsiveAnnounceDelayMin time.Duration
	ResponsiveAnnounceDelayMax time.Duration
}

// MulticastGroup is one (address, port) pair on the local bridge.
type MulticastGroup struct {
	Addr string
	Port int
}

// PBConfig configures the Packet Bridge, spec.md §4.5.
type PBConfig struct {
	Interface          string
	UpstreamGroups      []MulticastGroup
	DownstreamGroups    []MulticastGroup
	SpoolDir            string
	NodeStatusPath      string
	PeerDiscoveryPath   string
	IngressReadTimeout  time.Duration
	EgressPollHz        int
}

// ROSConfig configures the Reliable Overlay Sender, spec.md §4.6.
type ROSConfig struct {
	SpoolDir              string
	NodeStatusPath        string
	PeerDiscoveryPath     string
	SendSpacingDelay      time.Duration
	RetryInitialDelay     time.Duration
	RetryBackoffFactor    float64
	RetryMaxDelay         time.Duration
	RetryMaxAttempts      int
	RetryJitter           float64
	ReceiptPromptPeriod   time.Duration
	PacketTimeout         time.Duration
}

// CodecConfig configures the dictionary-assisted compressor, spec.md §4.1.
type CodecConfig struct {
	DictionaryPath string
	Level          int
	MaxBytes       int
}

// DedupConfig configures the fingerprint ring, spec.md §4.2.
type DedupConfig struct {
	Capacity int
}

// MetricsConfig configures the Prometheus exporter, SPEC_FULL §11.
type MetricsConfig struct {
	ListenAddr string
}

// Default returns a Config populated with every documented default
// from spec.md, suitable as a base for Apply* overrides.
func Default() *Config {
	return &Config{
		LQM: LQMConfig{
			SampleInterval:   DefaultSampleInterval,
			FailureThreshold: DefaultFailureThreshold,
			FailureCount:     DefaultFailureCount,
			RecoveryCount:    DefaultRecoveryCount,
			NodeStatusPath:   "/var/lib/overlay-bridge/node_status.json",
		},
		PDS: PDSConfig{
			AppName:                    DefaultAppName,
			Aspect:                     DefaultAspect,
			AnnounceInterval:           DefaultAnnounceInterval,
			PeerTimeout:                DefaultPeerTimeout,
			ResponsiveAnnounceDelayMin: DefaultResponsiveAnnounceDelayMin,
			ResponsiveAnnounceDelayMax: DefaultResponsiveAnnounceDelayMax,
			PeerDiscoveryPath:          "/var/lib/overlay-bridge/peer_discovery.json",
		},
		PB: PBConfig{
			Interface:          "br0",
			SpoolDir:           "/var/lib/overlay-bridge/spool",
			NodeStatusPath:     "/var/lib/overlay-bridge/node_status.json",
			PeerDiscoveryPath:  "/var/lib/overlay-bridge/peer_discovery.json",
			IngressReadTimeout: DefaultIngressReadTimeout,
			EgressPollHz:       DefaultEgressPollHz,
			UpstreamGroups: []MulticastGroup{
				{Addr: "224.10.10.1", Port: 17012},
				{Addr: "239.2.3.1", Port: 6969},
			},
			DownstreamGroups: []MulticastGroup{
				{Addr: "224.10.10.1", Port: 17013},
				{Addr: "239.2.3.1", Port: 6971},
			},
		},
		ROS: ROSConfig{
			SpoolDir:            "/var/lib/overlay-bridge/spool",
			NodeStatusPath:      "/var/lib/overlay-bridge/node_status.json",
			PeerDiscoveryPath:   "/var/lib/overlay-bridge/peer_discovery.json",
			SendSpacingDelay:    DefaultSendSpacingDelay,
			RetryInitialDelay:   DefaultRetryInitialDelay,
			RetryBackoffFactor:  DefaultRetryBackoffFactor,
			RetryMaxDelay:       DefaultRetryMaxDelay,
			RetryMaxAttempts:    DefaultRetryMaxAttempts,
			RetryJitter:         DefaultRetryJitter,
			ReceiptPromptPeriod: DefaultReceiptPromptPeriod,
			PacketTimeout:       DefaultPacketTimeout,
		},
		Codec: CodecConfig{
			Level:    DefaultCodecLevel,
			MaxBytes: DefaultCodecMaxBytes,
		},
		Dedup: DedupConfig{
			Capacity: DefaultDedupCapacity,
		},
		Metrics: MetricsConfig{
			ListenAddr: ":9477",
		},
	}
}
