// Package sourcetest holds fixtures and fakes for code that consumes the source tables.
package sourcetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/telcopulse/internal/source/domain"
	"gorm.io/gorm"
)

func Str(v string) *string { return &v }

func Int(v int) *int { return &v }

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func Amount(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func Customer(id string) domain.Customer {
	return domain.Customer{
		CustomerID:       id,
		Name:             "Customer " + id,
		Gender:           "F",
		DOB:              Date(1990, time.January, 1),
		City:             "Jakarta",
		PhoneNumber:      Str("+62-" + id),
		Email:            Str(id + "@example.com"),
		RegistrationDate: Date(2023, time.January, 1),
		CustomerType:     Str("Individual"),
		Status:           domain.CustomerStatusActive,
	}
}

func Plan(id, planType, price string) domain.Plan {
	return domain.Plan{
		PlanID:   id,
		PlanName: "Plan " + id,
		PlanType: planType,
		Price:    Amount(price),
	}
}

func Sim(id, customerID, planID, status string) domain.SimConnection {
	return domain.SimConnection{
		SimID:          id,
		SimNumber:      Str("0812" + id),
		CustomerID:     Str(customerID),
		PlanID:         Str(planID),
		ActivationDate: Date(2023, time.February, 1),
		Status:         status,
	}
}

func Fiber(id, customerID, planID, status string) domain.FiberConnection {
	return domain.FiberConnection{
		FiberID:          id,
		CustomerID:       Str(customerID),
		PlanID:           Str(planID),
		InstallationDate: Date(2023, time.February, 1),
		Status:           status,
	}
}

func Payment(id, customerID, planID, amount, status string, date *time.Time) domain.Payment {
	return domain.Payment{
		PaymentID:     id,
		CustomerID:    Str(customerID),
		PlanID:        Str(planID),
		PaymentDate:   date,
		AmountPaid:    Amount(amount),
		PaymentMethod: "Card",
		PaymentStatus: status,
	}
}

// Seed creates the source tables on conn and inserts snap.
func Seed(conn *gorm.DB, snap domain.Snapshot) error {
	if err := conn.AutoMigrate(
		&domain.Customer{},
		&domain.Plan{},
		&domain.SimConnection{},
		&domain.FiberConnection{},
		&domain.Payment{},
	); err != nil {
		return err
	}
	inserts := []any{}
	if len(snap.Customers) > 0 {
		inserts = append(inserts, &snap.Customers)
	}
	if len(snap.Plans) > 0 {
		inserts = append(inserts, &snap.Plans)
	}
	if len(snap.Sims) > 0 {
		inserts = append(inserts, &snap.Sims)
	}
	if len(snap.Fibers) > 0 {
		inserts = append(inserts, &snap.Fibers)
	}
	if len(snap.Payments) > 0 {
		inserts = append(inserts, &snap.Payments)
	}
	for _, rows := range inserts {
		if err := conn.Create(rows).Error; err != nil {
			return err
		}
	}
	return nil
}

// FakeAccessor serves a fixed snapshot from memory and records write-backs.
type FakeAccessor struct {
	mu sync.Mutex

	Snapshot domain.Snapshot
	FetchErr error
	// UpdateErr, when set, fails every status update.
	UpdateErr error

	StatusWrites  []string
	ProfileWrites []string
}

func (f *FakeAccessor) FetchCustomers(context.Context) ([]domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return append([]domain.Customer(nil), f.Snapshot.Customers...), nil
}

func (f *FakeAccessor) FetchPlans(context.Context) ([]domain.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return append([]domain.Plan(nil), f.Snapshot.Plans...), nil
}

func (f *FakeAccessor) FetchSimConnections(context.Context) ([]domain.SimConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return append([]domain.SimConnection(nil), f.Snapshot.Sims...), nil
}

func (f *FakeAccessor) FetchFiberConnections(context.Context) ([]domain.FiberConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return append([]domain.FiberConnection(nil), f.Snapshot.Fibers...), nil
}

func (f *FakeAccessor) FetchPayments(_ context.Context, since *time.Time) ([]domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	out := make([]domain.Payment, 0, len(f.Snapshot.Payments))
	for _, p := range f.Snapshot.Payments {
		if since != nil && (p.PaymentDate == nil || p.PaymentDate.Before(*since)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *FakeAccessor) UpdateCustomerStatus(_ context.Context, customerID string, status domain.CustomerStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	for i := range f.Snapshot.Customers {
		if f.Snapshot.Customers[i].CustomerID == customerID {
			f.Snapshot.Customers[i].Status = status
			f.StatusWrites = append(f.StatusWrites, customerID)
			return nil
		}
	}
	return domain.ErrCustomerNotFound
}

func (f *FakeAccessor) UpdateCustomerProfile(_ context.Context, customerID string, profile domain.CustomerProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Snapshot.Customers {
		if f.Snapshot.Customers[i].CustomerID == customerID {
			f.Snapshot.Customers[i].Name = profile.Name
			f.Snapshot.Customers[i].City = profile.City
			f.ProfileWrites = append(f.ProfileWrites, customerID)
			return nil
		}
	}
	return domain.ErrCustomerNotFound
}

// Status returns the stored status of a customer.
func (f *FakeAccessor) Status(customerID string) domain.CustomerStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Snapshot.Customers {
		if c.CustomerID == customerID {
			return c.Status
		}
	}
	return ""
}

// Writes returns a sorted copy of the status write log.
func (f *FakeAccessor) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.StatusWrites...)
	sort.Strings(out)
	return out
}

var _ domain.Accessor = (*FakeAccessor)(nil)
