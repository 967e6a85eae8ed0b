// Package lock provides the run-level mutual exclusion that keeps two
// refresh runs of the same pipeline from overlapping.
package lock

import (
	"context"
	"errors"
	"time"

	obsmetrics "github.com/smallbiznis/telcopulse/internal/observability/metrics"
)

var (
	ErrNotAcquired = errors.New("lock_not_acquired")
	ErrLockLost    = errors.New("lock_lost")
	ErrInvalidKey  = errors.New("lock_invalid_key")
	ErrInvalidTTL  = errors.New("lock_invalid_ttl")
)

const keyPrefix = "telcopulse:refresh:"

const pollInterval = 200 * time.Millisecond

// Locker grants a single holder per key until Release or ttl expiry.
type Locker interface {
	// TryLock makes one attempt. ok is false when another holder owns key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release frees key if token still owns it, ErrLockLost otherwise.
	Release(ctx context.Context, key, token string) error
	Backend() string
}

// Key returns the lock key for a pipeline.
func Key(pipeline string) string {
	return keyPrefix + pipeline
}

// Lease is a held lock.
type Lease struct {
	locker Locker
	key    string
	token  string
}

func (l *Lease) Key() string { return l.key }

// Release frees the lease. It is safe to call on a nil lease.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.locker == nil {
		return nil
	}
	return l.locker.Release(ctx, l.key, l.token)
}

// Acquire polls locker until key is held or wait elapses. A zero wait makes
// exactly one attempt.
func Acquire(ctx context.Context, locker Locker, key string, ttl, wait time.Duration) (*Lease, error) {
	if locker == nil {
		return nil, errors.New("lock client not configured")
	}
	start := time.Now()
	deadline := start.Add(wait)
	pipelineMetrics := obsmetrics.Pipeline()

	for {
		token, ok, err := locker.TryLock(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			pipelineMetrics.ObserveLockWait(locker.Backend(), time.Since(start), true)
			return &Lease{locker: locker, key: key, token: token}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			pipelineMetrics.ObserveLockWait(locker.Backend(), time.Since(start), false)
			return nil, ErrNotAcquired
		}
		timer := time.NewTimer(min(pollInterval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func validate(key string, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
