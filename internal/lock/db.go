package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/telcopulse/internal/clock"
	obsmetrics "github.com/smallbiznis/telcopulse/internal/observability/metrics"
	"github.com/smallbiznis/telcopulse/pkg/db"
	"gorm.io/gorm"
)

// PipelineLock is one held lock row. Expired rows may be taken over.
type PipelineLock struct {
	Name       string    `gorm:"column:name;primaryKey;size:191"`
	Token      string    `gorm:"column:token;size:64;not null"`
	AcquiredAt time.Time `gorm:"column:acquired_at;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null"`
}

func (PipelineLock) TableName() string { return "pipeline_locks" }

// DBLocker keeps locks in the pipeline_locks table for deployments without redis.
type DBLocker struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewDBLocker(conn *gorm.DB, clk clock.Clock) *DBLocker {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &DBLocker{db: conn, clock: clk}
}

func (l *DBLocker) Backend() string { return obsmetrics.LockBackendDB }

func (l *DBLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := validate(key, ttl); err != nil {
		return "", false, err
	}

	now := l.clock.Now()
	row := PipelineLock{
		Name:       key,
		Token:      uuid.NewString(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	err := l.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return row.Token, true, nil
	}
	if !db.IsDuplicateKeyErr(err) {
		return "", false, err
	}

	// held by someone; take it over only if their lease has expired
	res := l.db.WithContext(ctx).
		Model(&PipelineLock{}).
		Where("name = ? AND expires_at < ?", key, now).
		Updates(map[string]any{
			"token":       row.Token,
			"acquired_at": row.AcquiredAt,
			"expires_at":  row.ExpiresAt,
		})
	if res.Error != nil {
		return "", false, res.Error
	}
	if res.RowsAffected == 0 {
		return "", false, nil
	}
	return row.Token, true, nil
}

func (l *DBLocker) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	res := l.db.WithContext(ctx).
		Where("name = ? AND token = ?", key, token).
		Delete(&PipelineLock{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLockLost
	}
	return nil
}
