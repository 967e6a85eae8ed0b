package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mock/mock_accessor.go -package=mock github.com/smallbiznis/telcopulse/internal/source/domain Accessor

// Accessor reads the operational tables and performs the two write-backs the
// pipeline is allowed to make on them.
type Accessor interface {
	FetchCustomers(ctx context.Context) ([]Customer, error)
	FetchPlans(ctx context.Context) ([]Plan, error)
	FetchSimConnections(ctx context.Context) ([]SimConnection, error)
	FetchFiberConnections(ctx context.Context) ([]FiberConnection, error)
	// FetchPayments returns payments dated at or after since; nil returns all.
	FetchPayments(ctx context.Context, since *time.Time) ([]Payment, error)
	UpdateCustomerStatus(ctx context.Context, customerID string, status CustomerStatus) error
	UpdateCustomerProfile(ctx context.Context, customerID string, profile CustomerProfile) error
}
