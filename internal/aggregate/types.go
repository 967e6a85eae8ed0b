package aggregate

import (
	"time"

	"github.com/shopspring/decimal"
	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
)

type CustomerOverview struct {
	CustomerID       string                      `json:"customer_id"`
	Name             string                      `json:"name"`
	Gender           string                      `json:"gender"`
	City             string                      `json:"city"`
	CustomerType     string                      `json:"customer_type"`
	Status           sourcedomain.CustomerStatus `json:"status"`
	RegistrationDate *time.Time                  `json:"registration_date"`
	SimCount         int                         `json:"sim_count"`
	FiberCount       int                         `json:"fiber_count"`
}

type MobileSubscription struct {
	SimID          string          `json:"sim_id"`
	SimNumber      string          `json:"sim_number"`
	CustomerID     string          `json:"customer_id"`
	CustomerName   string          `json:"customer_name"`
	PlanID         string          `json:"plan_id"`
	PlanName       string          `json:"plan_name"`
	PlanType       string          `json:"plan_type"`
	Price          decimal.Decimal `json:"price"`
	ActivationDate *time.Time      `json:"activation_date"`
	Status         string          `json:"status"`
	DataLimitGB    *float64        `json:"data_limit_gb"`
	CallMinutes    *int            `json:"call_minutes"`
}

type FiberSubscription struct {
	FiberID          string          `json:"fiber_id"`
	CustomerID       string          `json:"customer_id"`
	CustomerName     string          `json:"customer_name"`
	PlanID           string          `json:"plan_id"`
	PlanName         string          `json:"plan_name"`
	PlanType         string          `json:"plan_type"`
	Price            decimal.Decimal `json:"price"`
	InstallationDate *time.Time      `json:"installation_date"`
	Status           string          `json:"status"`
	SpeedMbps        *int            `json:"speed_mbps"`
	DataLimitGB      *float64        `json:"data_limit_gb"`
}

// CustomerValue summarizes a customer's successful payments. Customers
// without any carry zero totals and nil dates.
type CustomerValue struct {
	CustomerID             string          `json:"customer_id"`
	Name                   string          `json:"name"`
	SuccessfulPaymentCount int             `json:"successful_payment_count"`
	TotalRevenue           decimal.Decimal `json:"total_revenue"`
	FirstPaymentDate       *time.Time      `json:"first_payment_date"`
	LastPaymentDate        *time.Time      `json:"last_payment_date"`
}

type PlanPerformance struct {
	PlanID                     string          `json:"plan_id"`
	PlanName                   string          `json:"plan_name"`
	PlanType                   string          `json:"plan_type"`
	UniquePayingCustomers      int             `json:"unique_paying_customers"`
	SuccessfulTransactionCount int             `json:"successful_transaction_count"`
	TotalRevenue               decimal.Decimal `json:"total_revenue"`
}

// PlanTypeARPU is successful revenue divided by distinct paying customers
// across every plan of one type.
type PlanTypeARPU struct {
	PlanType        string          `json:"plan_type"`
	PayingCustomers int             `json:"paying_customers"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	ARPU            decimal.Decimal `json:"arpu"`
}

// Result bundles every view computed from one snapshot.
type Result struct {
	Overview      []CustomerOverview   `json:"customer_overview"`
	Mobile        []MobileSubscription `json:"mobile_subscriptions"`
	Fiber         []FiberSubscription  `json:"fiber_subscriptions"`
	CustomerValue []CustomerValue      `json:"customer_value"`
	Plans         []PlanPerformance    `json:"plan_performance"`
	ARPU          []PlanTypeARPU       `json:"plan_type_arpu"`
}
