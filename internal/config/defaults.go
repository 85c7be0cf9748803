package config

import "time"

// Codec defaults, spec.md §4.1.
const (
	DefaultCodecMaxBytes = 350
	DefaultCodecLevel    = 3
)

// Dedup defaults, spec.md §4.2.
const (
	DefaultDedupCapacity = 1000
)

// LQM defaults, spec.md §4.3.
const (
	DefaultSampleInterval   = 1 * time.Second
	DefaultFailureThreshold = 3 * time.Second
	DefaultFailureCount     = 3
	DefaultRecoveryCount    = 10
)

// PDS defaults, spec.md §4.4.
const (
	DefaultAnnounceInterval             = 60 * time.Second
	DefaultPeerTimeout                  = 300 * time.Second
	DefaultResponsiveAnnounceDelayMin   = 500 * time.Millisecond
	DefaultResponsiveAnnounceDelayMax   = 1500 * time.Millisecond
	DefaultAppName                      = "atak"
	DefaultAspect                       = "cot"
)

// PB defaults, spec.md §4.5, §5.
const (
	DefaultIngressReadTimeout = 100 * time.Millisecond
	DefaultEgressPollHz       = 10
)

// ROS defaults, spec.md §4.6.
const (
	DefaultSendSpacingDelay    = 2 * time.Second
	DefaultRetryInitialDelay   = 25 * time.Second
	DefaultRetryBackoffFactor  = 2.0
	DefaultRetryMaxDelay       = 120 * time.Second
	DefaultRetryMaxAttempts    = 5
	DefaultRetryJitter         = 0.1
	DefaultReceiptPromptPeriod = 5 * time.Second
	DefaultPacketTimeout       = 300 * time.Second
)

// EnvPrefix is the common prefix for every environment variable this
// module reads.
const EnvPrefix = "OVB_"
