package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "Active"
	CustomerStatusInactive CustomerStatus = "Inactive"
)

const (
	ConnectionStatusActive    = "Active"
	ConnectionStatusInactive  = "Inactive"
	ConnectionStatusExpired   = "Expired"
	ConnectionStatusSuspended = "Suspended"
)

const PaymentStatusSuccess = "Success"

// Customer is a subscriber record. Status is derived by reconciliation and
// must not be edited by hand.
type Customer struct {
	CustomerID       string         `gorm:"column:customer_id;primaryKey"`
	Name             string         `gorm:"column:name"`
	Gender           string         `gorm:"column:gender"`
	DOB              *time.Time     `gorm:"column:dob"`
	City             string         `gorm:"column:city"`
	PhoneNumber      *string        `gorm:"column:phone_number"`
	Email            *string        `gorm:"column:email"`
	RegistrationDate *time.Time     `gorm:"column:registration_date"`
	CustomerType     *string        `gorm:"column:customer_type"`
	Status           CustomerStatus `gorm:"column:status"`
}

func (Customer) TableName() string { return "customers" }

type Plan struct {
	PlanID       string              `gorm:"column:plan_id;primaryKey"`
	PlanName     string              `gorm:"column:plan_name"`
	PlanType     string              `gorm:"column:plan_type"`
	Price        decimal.NullDecimal `gorm:"column:price;type:decimal(14,2)"`
	ValidityDays *int                `gorm:"column:validity_days"`
	DataLimitGB  *float64            `gorm:"column:data_limit_gb"`
	CallMinutes  *int                `gorm:"column:call_minutes"`
	SpeedMbps    *int                `gorm:"column:speed_mbps"`
}

func (Plan) TableName() string { return "plans" }

type SimConnection struct {
	SimID          string     `gorm:"column:sim_id;primaryKey"`
	SimNumber      *string    `gorm:"column:sim_number"`
	CustomerID     *string    `gorm:"column:customer_id"`
	PlanID         *string    `gorm:"column:plan_id"`
	ActivationDate *time.Time `gorm:"column:activation_date"`
	Status         string     `gorm:"column:status"`
	DataLimitGB    *float64   `gorm:"column:data_limit_gb"`
	CallMinutes    *int       `gorm:"column:call_minutes"`
}

func (SimConnection) TableName() string { return "sim_connections" }

func (s SimConnection) IsActive() bool {
	return isActive(s.Status)
}

type FiberConnection struct {
	FiberID          string     `gorm:"column:fiber_id;primaryKey"`
	CustomerID       *string    `gorm:"column:customer_id"`
	PlanID           *string    `gorm:"column:plan_id"`
	InstallationDate *time.Time `gorm:"column:installation_date"`
	Status           string     `gorm:"column:status"`
	SpeedMbps        *int       `gorm:"column:speed_mbps"`
	DataLimitGB      *float64   `gorm:"column:data_limit_gb"`
}

func (FiberConnection) TableName() string { return "fiber_connections" }

func (f FiberConnection) IsActive() bool {
	return isActive(f.Status)
}

type Payment struct {
	PaymentID     string              `gorm:"column:payment_id;primaryKey"`
	CustomerID    *string             `gorm:"column:customer_id"`
	PlanID        *string             `gorm:"column:plan_id"`
	PaymentDate   *time.Time          `gorm:"column:payment_date"`
	AmountPaid    decimal.NullDecimal `gorm:"column:amount_paid;type:decimal(14,2)"`
	PaymentMethod string              `gorm:"column:payment_method"`
	PaymentStatus string              `gorm:"column:payment_status"`
}

func (Payment) TableName() string { return "payments" }

// IsSuccessful reports whether the payment counts toward revenue.
func (p Payment) IsSuccessful() bool {
	return strings.EqualFold(strings.TrimSpace(p.PaymentStatus), PaymentStatusSuccess)
}

// Amount returns the paid amount, treating a missing amount as zero.
func (p Payment) Amount() decimal.Decimal {
	if !p.AmountPaid.Valid {
		return decimal.Zero
	}
	return p.AmountPaid.Decimal
}

// CustomerProfile carries the free-text profile fields cleaned by normalization.
type CustomerProfile struct {
	Name string
	City string
}

// Snapshot is one consistent read of every source table.
type Snapshot struct {
	Customers []Customer
	Plans     []Plan
	Sims      []SimConnection
	Fibers    []FiberConnection
	Payments  []Payment
	FetchedAt time.Time
}

func isActive(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), ConnectionStatusActive)
}

// Deref returns the pointed-to string or "" for nil.
func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
