package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/telcopulse/internal/config"
	"github.com/smallbiznis/telcopulse/internal/source/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const defaultCallTimeout = 30 * time.Second

type Params struct {
	fx.In

	DB     *gorm.DB
	Config config.Config
}

type repo struct {
	db      *gorm.DB
	timeout time.Duration
}

func Provide(p Params) domain.Accessor {
	return New(p.DB, p.Config.Refresh.SourceTimeout)
}

// New returns a gorm-backed Accessor; every call is bounded by timeout.
func New(db *gorm.DB, timeout time.Duration) domain.Accessor {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &repo{db: db, timeout: timeout}
}

func (r *repo) FetchCustomers(ctx context.Context) ([]domain.Customer, error) {
	var rows []domain.Customer
	if err := r.find(ctx, "fetch customers", "customer_id", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FetchPlans(ctx context.Context) ([]domain.Plan, error) {
	var rows []domain.Plan
	if err := r.find(ctx, "fetch plans", "plan_id", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FetchSimConnections(ctx context.Context) ([]domain.SimConnection, error) {
	var rows []domain.SimConnection
	if err := r.find(ctx, "fetch sim connections", "sim_id", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FetchFiberConnections(ctx context.Context) ([]domain.FiberConnection, error) {
	var rows []domain.FiberConnection
	if err := r.find(ctx, "fetch fiber connections", "fiber_id", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) FetchPayments(ctx context.Context, since *time.Time) ([]domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []domain.Payment
	stmt := r.db.WithContext(ctx).Model(&domain.Payment{})
	if since != nil {
		stmt = stmt.Where("payment_date >= ?", since.UTC())
	}
	if err := stmt.Order("payment_id").Find(&rows).Error; err != nil {
		return nil, unavailable("fetch payments", err)
	}
	return rows, nil
}

func (r *repo) UpdateCustomerStatus(ctx context.Context, customerID string, status domain.CustomerStatus) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("customer_id = ?", customerID).
		Update("status", string(status))
	if res.Error != nil {
		return unavailable("update customer status", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update customer %s: %w", customerID, domain.ErrCustomerNotFound)
	}
	return nil
}

func (r *repo) UpdateCustomerProfile(ctx context.Context, customerID string, profile domain.CustomerProfile) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("customer_id = ?", customerID).
		Updates(map[string]any{
			"name": strings.TrimSpace(profile.Name),
			"city": strings.TrimSpace(profile.City),
		})
	if res.Error != nil {
		return unavailable("update customer profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update customer %s: %w", customerID, domain.ErrCustomerNotFound)
	}
	return nil
}

func (r *repo) find(ctx context.Context, op, order string, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Order(order).Find(dest).Error; err != nil {
		return unavailable(op, err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrSourceUnavailable, op, err)
}
