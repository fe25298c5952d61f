package authkit

import (
	"errors"
	"time"
)

// Config defines a public type used by authkit APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	SessionFetch RetryConfig
	Profile      RetryConfig

	// ResolveTimeout bounds profile resolution when it sits on an init or
	// listener path; on expiry the Client falls back to a session-only user.
	ResolveTimeout time.Duration

	// SignOutTimeout bounds the background remote sign-out issued by Logout.
	SignOutTimeout time.Duration

	// BackfillTimeout bounds the detached username backfill task.
	BackfillTimeout time.Duration

	// CacheMaxAge is the staleness window for recovering a cached session
	// when the live fetch fails: a cached session whose expiry is older than
	// this is rejected.
	CacheMaxAge time.Duration

	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
RETRY CONFIG
====================================
*/

// RetryConfig defines a public type used by authkit APIs.
//
// RetryConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	JitterMax   time.Duration

	// Timeout is the per-attempt timeout. AttemptTimeouts, when set,
	// overrides it with an escalating per-attempt schedule (later attempts
	// tolerate more latency).
	Timeout         time.Duration
	AttemptTimeouts []time.Duration
}

// AuditConfig defines a public type used by authkit APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authkit APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		SessionFetch: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Multiplier:  1.5,
			JitterMax:   300 * time.Millisecond,
			AttemptTimeouts: []time.Duration{
				3 * time.Second,
				5 * time.Second,
				7 * time.Second,
			},
		},
		Profile: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			Multiplier:  1.5,
			JitterMax:   300 * time.Millisecond,
			Timeout:     10 * time.Second,
		},
		ResolveTimeout:  5 * time.Second,
		SignOutTimeout:  10 * time.Second,
		BackfillTimeout: 10 * time.Second,
		CacheMaxAge:     7 * 24 * time.Hour,
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the production defaults: 3 session-fetch attempts
// with escalating 3s/5s/7s timeouts, 3 profile attempts at 10s each, a
// 5-second resolve bound, and a 7-day stale-cache window.
func DefaultConfig() Config {
	return defaultConfig()
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if err := c.SessionFetch.validate("SessionFetch"); err != nil {
		return err
	}
	if err := c.Profile.validate("Profile"); err != nil {
		return err
	}
	if c.ResolveTimeout <= 0 {
		return errors.New("ResolveTimeout must be positive")
	}
	if c.SignOutTimeout <= 0 {
		return errors.New("SignOutTimeout must be positive")
	}
	if c.BackfillTimeout <= 0 {
		return errors.New("BackfillTimeout must be positive")
	}
	if c.CacheMaxAge <= 0 {
		return errors.New("CacheMaxAge must be positive")
	}
	return nil
}

func (r RetryConfig) validate(name string) error {
	if r.MaxAttempts < 1 {
		return errors.New(name + ".MaxAttempts must be at least 1")
	}
	if r.BaseDelay < 0 {
		return errors.New(name + ".BaseDelay must not be negative")
	}
	if r.Multiplier < 1 {
		return errors.New(name + ".Multiplier must be at least 1")
	}
	if r.JitterMax < 0 {
		return errors.New(name + ".JitterMax must not be negative")
	}
	if r.Timeout < 0 {
		return errors.New(name + ".Timeout must not be negative")
	}
	if r.Timeout == 0 && len(r.AttemptTimeouts) == 0 {
		return errors.New(name + " requires Timeout or AttemptTimeouts")
	}
	for _, t := range r.AttemptTimeouts {
		if t <= 0 {
			return errors.New(name + ".AttemptTimeouts entries must be positive")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.SessionFetch.AttemptTimeouts = cloneDurations(cfg.SessionFetch.AttemptTimeouts)
	out.Profile.AttemptTimeouts = cloneDurations(cfg.Profile.AttemptTimeouts)
	return out
}

func cloneDurations(in []time.Duration) []time.Duration {
	if in == nil {
		return nil
	}
	out := make([]time.Duration, len(in))
	copy(out, in)
	return out
}
