package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/smallbiznis/telcopulse/pkg/db"
	"github.com/smallbiznis/telcopulse/pkg/db/option"
	"gorm.io/gorm"
)

const insertBatchSize = 500

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](conn *gorm.DB) Repository[T] {
	return &store[T]{db: conn}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx}
}

func (r *store[T]) Find(ctx context.Context, opts ...option.QueryOption) ([]*T, error) {
	var result []*T
	err := r.buildQuery(ctx, opts...).Find(&result).Error
	return result, err
}

func (r *store[T]) FindOne(ctx context.Context, opts ...option.QueryOption) (*T, error) {
	var result T
	err := r.buildQuery(ctx, opts...).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Count(&count).Error
	return count, err
}

func (r *store[T]) Create(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

func (r *store[T]) Updates(ctx context.Context, entity *T, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(entity).Updates(fields).Error
}

// ReplaceAll deletes every row and inserts rows inside one transaction.
// Readers observe either the previous content or the new content; any error,
// including cancellation of ctx, rolls the table back to its previous state.
func (r *store[T]) ReplaceAll(ctx context.Context, rows []*T) (int, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if db.IsPostgres(tx) {
			table, err := tableName[T](tx)
			if err != nil {
				return err
			}
			if stmt, ok := lockTimeoutStatement(ctx); ok {
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("set lock timeout: %w", err)
				}
			}
			// serialize concurrent replacers; plain readers are not blocked
			if err := tx.Exec("LOCK TABLE " + pq.QuoteIdentifier(table) + " IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
				return fmt.Errorf("lock %s: %w", table, err)
			}
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(new(T)).Error; err != nil {
			return fmt.Errorf("clear: %w", err)
		}
		if len(rows) == 0 {
			return ctx.Err()
		}
		if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		return ctx.Err()
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *store[T]) buildQuery(ctx context.Context, opts ...option.QueryOption) *gorm.DB {
	stmt := r.db.WithContext(ctx).Model(new(T))
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}

// lockTimeoutStatement bounds lock waits inside the transaction by the
// remaining ctx budget. Without a deadline the server default applies.
func lockTimeoutStatement(ctx context.Context) (string, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return "", false
	}
	ms := time.Until(deadline).Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return "SET LOCAL lock_timeout = " + pq.QuoteLiteral(fmt.Sprintf("%dms", ms)), true
}

func tableName[T any](conn *gorm.DB) (string, error) {
	stmt := &gorm.Statement{DB: conn}
	if err := stmt.Parse(new(T)); err != nil {
		return "", fmt.Errorf("parse model: %w", err)
	}
	return stmt.Schema.Table, nil
}
