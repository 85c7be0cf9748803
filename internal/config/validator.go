package config

import (
	"fmt"
	"strings"
)

// ValidationError reports one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every ValidationError found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) HasErrors() bool { return len(e) > 0 }

// Validator accumulates ValidationErrors across multiple checks.
type Validator struct {
	errors ValidationErrors
}

func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
}

func (v *Validator) Errors() ValidationErrors { return v.errors }

// Validate checks cfg against the invariants spec.md requires of
// every documented default (positive intervals, sane thresholds,
// distinct upstream/downstream ports).
func Validate(cfg *Config) error {
	v := NewValidator()

	v.validateLQM(&cfg.LQM)
	v.validatePDS(&cfg.PDS)
	v.validatePB(&cfg.PB)
	v.validateROS(&cfg.ROS)
	v.validateCodec(&cfg.Codec)
	v.validateDedup(&cfg.Dedup)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateLQM(c *LQMConfig) {
	if c.SampleInterval <= 0 {
		v.addError("lqm.sample_interval", "must be positive")
	}
	if c.FailureThreshold <= 0 {
		v.addError("lqm.failure_threshold", "must be positive")
	}
	if c.FailureCount < 1 {
		v.addError("lqm.failure_count", "must be at least 1")
	}
	if c.RecoveryCount < 1 {
		v.addError("lqm.recovery_count", "must be at least 1")
	}
	if c.NodeStatusPath == "" {
		v.addError("lqm.node_status_path", "must not be empty")
	}
}

func (v *Validator) validatePDS(c *PDSConfig) {
	if c.AppName == "" {
		v.addError("pds.app_name", "must not be empty")
	}
	if c.Aspect == "" {
		v.addError("pds.aspect", "must not be empty")
	}
	if c.AnnounceInterval <= 0 {
		v.addError("pds.announce_interval", "must be positive")
	}
	if c.PeerTimeout <= 0 {
		v.addError("pds.peer_timeout", "must be positive")
	}
	if c.ResponsiveAnnounceDelayMin < 0 {
		v.addError("pds.responsive_announce_delay_min", "must not be negative")
	}
	if c.ResponsiveAnnounceDelayMax < c.ResponsiveAnnounceDelayMin {
		v.addError("pds.responsive_announce_delay_max", "must not be less than the minimum")
	}
	if c.PeerDiscoveryPath == "" {
		v.addError("pds.peer_discovery_path", "must not be empty")
	}
}

func (v *Validator) validatePB(c *PBConfig) {
	if c.Interface == "" {
		v.addError("pb.interface", "must not be empty")
	}
	if c.SpoolDir == "" {
		v.addError("pb.spool_dir", "must not be empty")
	}
	if c.IngressReadTimeout <= 0 {
		v.addError("pb.ingress_read_timeout", "must be positive")
	}
	if c.EgressPollHz <= 0 {
		v.addError("pb.egress_poll_hz", "must be positive")
	}
	if len(c.UpstreamGroups) != len(c.DownstreamGroups) {
		v.addError("pb.downstream_groups", "must have one entry per upstream group")
	}
	for i := range c.UpstreamGroups {
		if i < len(c.DownstreamGroups) && c.UpstreamGroups[i].Port == c.DownstreamGroups[i].Port {
			v.addError(fmt.Sprintf("pb.downstream_groups[%d]", i), "port must differ from the matching upstream port")
		}
	}
}

func (v *Validator) validateROS(c *ROSConfig) {
	if c.SpoolDir == "" {
		v.addError("ros.spool_dir", "must not be empty")
	}
	if c.SendSpacingDelay < 0 {
		v.addError("ros.send_spacing_delay", "must not be negative")
	}
	if c.RetryInitialDelay <= 0 {
		v.addError("ros.retry_initial_delay", "must be positive")
	}
	if c.RetryBackoffFactor <= 1 {
		v.addError("ros.retry_backoff_factor", "must be greater than 1")
	}
	if c.RetryMaxDelay < c.RetryInitialDelay {
		v.addError("ros.retry_max_delay", "must not be less than the initial delay")
	}
	if c.RetryMaxAttempts < 1 {
		v.addError("ros.retry_max_attempts", "must be at least 1")
	}
	if c.RetryJitter < 0 || c.RetryJitter > 1 {
		v.addError("ros.retry_jitter", "must be within [0, 1]")
	}
}

func (v *Validator) validateCodec(c *CodecConfig) {
	if c.MaxBytes <= 0 {
		v.addError("codec.max_bytes", "must be positive")
	}
}

func (v *Validator) validateDedup(c *DedupConfig) {
	if c.Capacity <= 0 {
		v.addError("dedup.capacity", "must be positive")
	}
}
