package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/telcopulse/internal/config"
)

const keyRefreshTrigger = "refresh:trigger:%s:%s"

// Limiter bounds how often one caller may trigger a refresh.
type Limiter interface {
	Allow(ctx context.Context, caller string) (*Result, error)
}

type TriggerLimiter struct {
	bucket   *TokenBucket
	pipeline string
	rate     float64
	burst    int
}

// NewTriggerLimiter returns nil when limiting is disabled or no redis
// client is configured.
func NewTriggerLimiter(cfg config.Config, client *redis.Client) *TriggerLimiter {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		return nil
	}
	if limitCfg.TriggerPerMinute <= 0 || limitCfg.TriggerBurst <= 0 {
		return nil
	}
	return &TriggerLimiter{
		bucket:   NewTokenBucket(client),
		pipeline: cfg.Refresh.Pipeline,
		rate:     limitCfg.TriggerPerMinute / 60,
		burst:    limitCfg.TriggerBurst,
	}
}

func (l *TriggerLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *TriggerLimiter) Allow(ctx context.Context, caller string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyRefreshTrigger, l.pipeline, strings.TrimSpace(caller))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
