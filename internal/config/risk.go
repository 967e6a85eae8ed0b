package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RiskConfig holds the inactivity thresholds used by customer risk classification.
type RiskConfig struct {
	HighAfterDays   int `mapstructure:"highAfterDays"`
	MediumAfterDays int `mapstructure:"mediumAfterDays"`
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		HighAfterDays:   180,
		MediumAfterDays: 90,
	}
}

type RiskConfigHolder struct {
	current atomic.Value // holds RiskConfig
}

// NewStaticRiskConfigHolder returns a holder pinned to cfg, without file watching.
func NewStaticRiskConfigHolder(cfg RiskConfig) *RiskConfigHolder {
	holder := &RiskConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewRiskConfigHolder() (*RiskConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("risk")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/telcopulse")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TELCOPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRiskConfig()
	v.SetDefault("risk.highAfterDays", defaults.HighAfterDays)
	v.SetDefault("risk.mediumAfterDays", defaults.MediumAfterDays)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg RiskConfig
	if err := v.UnmarshalKey("risk", &cfg); err != nil {
		return nil, err
	}
	if err := validateRiskConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticRiskConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log := zap.L().Named("config.risk")
		var updated RiskConfig
		if err := v.UnmarshalKey("risk", &updated); err != nil {
			log.Warn("risk config reload failed", zap.Error(err))
			return
		}
		if err := validateRiskConfig(updated); err != nil {
			log.Warn("invalid risk config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("risk config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *RiskConfigHolder) Get() RiskConfig {
	if h == nil {
		return DefaultRiskConfig()
	}
	cfg, ok := h.current.Load().(RiskConfig)
	if !ok {
		return DefaultRiskConfig()
	}
	return cfg
}

func validateRiskConfig(cfg RiskConfig) error {
	if cfg.MediumAfterDays <= 0 {
		return errors.New("risk.mediumAfterDays must be positive")
	}
	if cfg.HighAfterDays <= cfg.MediumAfterDays {
		return fmt.Errorf("risk.highAfterDays (%d) must exceed risk.mediumAfterDays (%d)", cfg.HighAfterDays, cfg.MediumAfterDays)
	}
	return nil
}
