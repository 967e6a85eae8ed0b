package refresh

import (
	"time"

	"github.com/smallbiznis/telcopulse/internal/config"
)

// Config controls run scheduling, timeouts and locking.
type Config struct {
	Pipeline       string
	Interval       time.Duration
	RunTimeout     time.Duration
	ReplaceTimeout time.Duration
	LockWait       time.Duration
	LockTTL        time.Duration
	Normalize      bool
}

func DefaultConfig() Config {
	return Config{
		Pipeline:       "telco_derived",
		Interval:       24 * time.Hour,
		RunTimeout:     30 * time.Minute,
		ReplaceTimeout: 2 * time.Minute,
		LockWait:       10 * time.Second,
		LockTTL:        45 * time.Minute,
		Normalize:      true,
	}
}

// ProvideConfig maps application config onto the orchestrator config.
func ProvideConfig(cfg config.Config) Config {
	return Config{
		Pipeline:       cfg.Refresh.Pipeline,
		Interval:       cfg.Refresh.Interval,
		RunTimeout:     cfg.Refresh.RunTimeout,
		ReplaceTimeout: cfg.Refresh.ReplaceTimeout,
		LockWait:       cfg.Refresh.LockWait,
		LockTTL:        cfg.Refresh.LockTTL,
		Normalize:      cfg.Refresh.Normalize,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Pipeline == "" {
		c.Pipeline = defaults.Pipeline
	}
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.ReplaceTimeout <= 0 {
		c.ReplaceTimeout = defaults.ReplaceTimeout
	}
	if c.LockWait < 0 {
		c.LockWait = defaults.LockWait
	}
	// the lease must outlive the longest possible run
	if c.LockTTL < c.RunTimeout {
		c.LockTTL = c.RunTimeout + c.ReplaceTimeout
	}
	return c
}
