package quality

import (
	"strings"
	"time"

	"github.com/smallbiznis/telcopulse/internal/quality/domain"
	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
)

type index struct {
	snap      sourcedomain.Snapshot
	customers map[string]sourcedomain.Customer
	plans     map[string]struct{}
}

func newIndex(snap sourcedomain.Snapshot) *index {
	idx := &index{
		snap:      snap,
		customers: make(map[string]sourcedomain.Customer, len(snap.Customers)),
		plans:     make(map[string]struct{}, len(snap.Plans)),
	}
	for _, c := range snap.Customers {
		idx.customers[c.CustomerID] = c
	}
	for _, p := range snap.Plans {
		idx.plans[p.PlanID] = struct{}{}
	}
	return idx
}

type check func(idx *index) []domain.RuleResult

var checks = []check{
	duplicateKeys,
	requiredFields,
	dateOrdering,
	referentialIntegrity,
	negativeAmounts,
}

// Validate runs every rule over the snapshot. Rules never short-circuit each
// other and every rule/entity pair appears in the report, passing or not.
func Validate(snap sourcedomain.Snapshot) domain.Report {
	idx := newIndex(snap)
	report := domain.Report{CheckedAt: snap.FetchedAt}
	for _, fn := range checks {
		report.Results = append(report.Results, fn(idx)...)
	}
	return report
}

func duplicateKeys(idx *index) []domain.RuleResult {
	phones := map[string][]string{}
	emails := map[string][]string{}
	for _, c := range idx.snap.Customers {
		if v := blankToEmpty(c.PhoneNumber); v != "" {
			phones[v] = append(phones[v], c.CustomerID)
		}
		if v := strings.ToLower(blankToEmpty(c.Email)); v != "" {
			emails[v] = append(emails[v], c.CustomerID)
		}
	}
	sims := map[string][]string{}
	for _, s := range idx.snap.Sims {
		if v := blankToEmpty(s.SimNumber); v != "" {
			sims[v] = append(sims[v], s.SimID)
		}
	}
	return []domain.RuleResult{
		domain.NewResult(domain.RuleDuplicatePhoneNumber, domain.EntityCustomer, collisions(phones)),
		domain.NewResult(domain.RuleDuplicateEmail, domain.EntityCustomer, collisions(emails)),
		domain.NewResult(domain.RuleDuplicateSimNumber, domain.EntitySimConnection, collisions(sims)),
	}
}

func requiredFields(idx *index) []domain.RuleResult {
	var customers, sims, fibers, payments []string
	for _, c := range idx.snap.Customers {
		if blankToEmpty(c.PhoneNumber) == "" || c.RegistrationDate == nil || blankToEmpty(c.CustomerType) == "" {
			customers = append(customers, c.CustomerID)
		}
	}
	for _, s := range idx.snap.Sims {
		if blankToEmpty(s.CustomerID) == "" || blankToEmpty(s.PlanID) == "" {
			sims = append(sims, s.SimID)
		}
	}
	for _, f := range idx.snap.Fibers {
		if blankToEmpty(f.CustomerID) == "" || blankToEmpty(f.PlanID) == "" {
			fibers = append(fibers, f.FiberID)
		}
	}
	for _, p := range idx.snap.Payments {
		if blankToEmpty(p.CustomerID) == "" || blankToEmpty(p.PlanID) == "" || p.PaymentDate == nil || !p.AmountPaid.Valid {
			payments = append(payments, p.PaymentID)
		}
	}
	return []domain.RuleResult{
		domain.NewResult(domain.RuleMissingRequiredField, domain.EntityCustomer, customers),
		domain.NewResult(domain.RuleMissingRequiredField, domain.EntitySimConnection, sims),
		domain.NewResult(domain.RuleMissingRequiredField, domain.EntityFiberConnection, fibers),
		domain.NewResult(domain.RuleMissingRequiredField, domain.EntityPayment, payments),
	}
}

func dateOrdering(idx *index) []domain.RuleResult {
	var customers, sims, fibers, payments []string
	for _, c := range idx.snap.Customers {
		if c.DOB != nil && c.RegistrationDate != nil && dayBefore(*c.RegistrationDate, *c.DOB) {
			customers = append(customers, c.CustomerID)
		}
	}
	for _, s := range idx.snap.Sims {
		if idx.occursBeforeRegistration(s.CustomerID, s.ActivationDate) {
			sims = append(sims, s.SimID)
		}
	}
	for _, f := range idx.snap.Fibers {
		if idx.occursBeforeRegistration(f.CustomerID, f.InstallationDate) {
			fibers = append(fibers, f.FiberID)
		}
	}
	for _, p := range idx.snap.Payments {
		if idx.occursBeforeRegistration(p.CustomerID, p.PaymentDate) {
			payments = append(payments, p.PaymentID)
		}
	}
	return []domain.RuleResult{
		domain.NewResult(domain.RuleRegistrationBeforeDOB, domain.EntityCustomer, customers),
		domain.NewResult(domain.RuleActivationBeforeRegistration, domain.EntitySimConnection, sims),
		domain.NewResult(domain.RuleInstallBeforeRegistration, domain.EntityFiberConnection, fibers),
		domain.NewResult(domain.RulePaymentBeforeRegistration, domain.EntityPayment, payments),
	}
}

func referentialIntegrity(idx *index) []domain.RuleResult {
	var simCustomers, fiberCustomers, paymentCustomers []string
	var simPlans, fiberPlans, paymentPlans []string
	for _, s := range idx.snap.Sims {
		if idx.danglingCustomer(s.CustomerID) {
			simCustomers = append(simCustomers, s.SimID)
		}
		if idx.danglingPlan(s.PlanID) {
			simPlans = append(simPlans, s.SimID)
		}
	}
	for _, f := range idx.snap.Fibers {
		if idx.danglingCustomer(f.CustomerID) {
			fiberCustomers = append(fiberCustomers, f.FiberID)
		}
		if idx.danglingPlan(f.PlanID) {
			fiberPlans = append(fiberPlans, f.FiberID)
		}
	}
	for _, p := range idx.snap.Payments {
		if idx.danglingCustomer(p.CustomerID) {
			paymentCustomers = append(paymentCustomers, p.PaymentID)
		}
		if idx.danglingPlan(p.PlanID) {
			paymentPlans = append(paymentPlans, p.PaymentID)
		}
	}
	return []domain.RuleResult{
		domain.NewResult(domain.RuleDanglingCustomerReference, domain.EntitySimConnection, simCustomers),
		domain.NewResult(domain.RuleDanglingCustomerReference, domain.EntityFiberConnection, fiberCustomers),
		domain.NewResult(domain.RuleDanglingCustomerReference, domain.EntityPayment, paymentCustomers),
		domain.NewResult(domain.RuleDanglingPlanReference, domain.EntitySimConnection, simPlans),
		domain.NewResult(domain.RuleDanglingPlanReference, domain.EntityFiberConnection, fiberPlans),
		domain.NewResult(domain.RuleDanglingPlanReference, domain.EntityPayment, paymentPlans),
	}
}

func negativeAmounts(idx *index) []domain.RuleResult {
	var payments []string
	for _, p := range idx.snap.Payments {
		if p.AmountPaid.Valid && p.AmountPaid.Decimal.IsNegative() {
			payments = append(payments, p.PaymentID)
		}
	}
	return []domain.RuleResult{
		domain.NewResult(domain.RuleNegativeAmount, domain.EntityPayment, payments),
	}
}

// occursBeforeRegistration is false whenever either side is unknown; missing
// values are reported by the required-field and reference rules instead.
func (idx *index) occursBeforeRegistration(customerID *string, at *time.Time) bool {
	if at == nil {
		return false
	}
	c, ok := idx.customers[blankToEmpty(customerID)]
	if !ok || c.RegistrationDate == nil {
		return false
	}
	return dayBefore(*at, *c.RegistrationDate)
}

func (idx *index) danglingCustomer(id *string) bool {
	v := blankToEmpty(id)
	if v == "" {
		return false
	}
	_, ok := idx.customers[v]
	return !ok
}

func (idx *index) danglingPlan(id *string) bool {
	v := blankToEmpty(id)
	if v == "" {
		return false
	}
	_, ok := idx.plans[v]
	return !ok
}

func collisions(groups map[string][]string) []string {
	var out []string
	for _, ids := range groups {
		if len(ids) > 1 {
			out = append(out, ids...)
		}
	}
	return out
}

// dayBefore compares calendar dates in UTC, ignoring time of day.
func dayBefore(a, b time.Time) bool {
	return truncateDay(a).Before(truncateDay(b))
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func blankToEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
