package repository

import (
	"context"

	"github.com/smallbiznis/telcopulse/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm store for tables the pipeline owns outright.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, opts ...option.QueryOption) (*T, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, entity *T) error
	// Updates writes fields onto the row identified by entity's primary key.
	Updates(ctx context.Context, entity *T, fields map[string]any) error
	// ReplaceAll atomically swaps the whole table content for rows.
	ReplaceAll(ctx context.Context, rows []*T) (int, error)
}
