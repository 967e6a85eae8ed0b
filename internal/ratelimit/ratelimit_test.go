package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/telcopulse/internal/config"
)

func TestNewResultRetryAfter(t *testing.T) {
	res := newResult(false, 0.25, 0.5, 2)
	if res.Allowed {
		t.Fatalf("expected denied result")
	}
	if res.RetryAfter != 1500*time.Millisecond {
		t.Fatalf("expected retry after 1.5s, got %s", res.RetryAfter)
	}
	if res.Limit != 2 || res.Remaining != 0 {
		t.Fatalf("expected limit 2 remaining 0, got %d/%d", res.Limit, res.Remaining)
	}

	allowed := newResult(true, 1, 0.5, 2)
	if allowed.RetryAfter != 0 {
		t.Fatalf("expected no retry for allowed result, got %s", allowed.RetryAfter)
	}
}

func TestCastToFloatParsesScriptStrings(t *testing.T) {
	if got := castToFloat("0.75"); got != 0.75 {
		t.Fatalf("expected 0.75, got %v", got)
	}
	if got := castToFloat("not a number"); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := castToFloat(int64(3)); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestDefaultBucketTTL(t *testing.T) {
	if got := defaultBucketTTL(0.5, 2); got != 8*time.Second {
		t.Fatalf("expected 8s, got %s", got)
	}
	if got := defaultBucketTTL(100, 1); got != time.Second {
		t.Fatalf("expected 1s floor, got %s", got)
	}
}

func TestNewTriggerLimiterDisabled(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: false, TriggerPerMinute: 1, TriggerBurst: 1}}
	if l := NewTriggerLimiter(cfg, client); l != nil {
		t.Fatalf("expected nil limiter when disabled")
	}

	cfg.RateLimit.Enabled = true
	if l := NewTriggerLimiter(cfg, nil); l != nil {
		t.Fatalf("expected nil limiter without redis")
	}

	cfg.RateLimit.TriggerBurst = 0
	if l := NewTriggerLimiter(cfg, client); l != nil {
		t.Fatalf("expected nil limiter with zero burst")
	}
}

func TestNilTriggerLimiterAllows(t *testing.T) {
	var l *TriggerLimiter
	res, err := l.Allow(context.Background(), "10.0.0.1")
	if err != nil || !res.Allowed {
		t.Fatalf("expected nil limiter to allow, got %+v %v", res, err)
	}
}

func TestTriggerLimiterRate(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	l := NewTriggerLimiter(config.Config{
		RateLimit: config.RateLimitConfig{Enabled: true, TriggerPerMinute: 6, TriggerBurst: 3},
		Refresh:   config.RefreshConfig{Pipeline: "telco_derived"},
	}, client)
	if !l.Enabled() {
		t.Fatalf("expected enabled limiter")
	}
	if l.rate != 0.1 || l.burst != 3 {
		t.Fatalf("expected rate 0.1 burst 3, got %v/%d", l.rate, l.burst)
	}
}
