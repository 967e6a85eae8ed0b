package domain

import (
	"sort"
	"time"
)

type Rule string

const (
	RuleDuplicatePhoneNumber         Rule = "duplicate_phone_number"
	RuleDuplicateEmail               Rule = "duplicate_email"
	RuleDuplicateSimNumber           Rule = "duplicate_sim_number"
	RuleMissingRequiredField         Rule = "missing_required_field"
	RuleRegistrationBeforeDOB        Rule = "registration_before_dob"
	RuleActivationBeforeRegistration Rule = "activation_before_registration"
	RuleInstallBeforeRegistration    Rule = "installation_before_registration"
	RulePaymentBeforeRegistration    Rule = "payment_before_registration"
	RuleDanglingCustomerReference    Rule = "dangling_customer_reference"
	RuleDanglingPlanReference        Rule = "dangling_plan_reference"
	RuleNegativeAmount               Rule = "negative_amount"
)

type Entity string

const (
	EntityCustomer        Entity = "customer"
	EntitySimConnection   Entity = "sim_connection"
	EntityFiberConnection Entity = "fiber_connection"
	EntityPayment         Entity = "payment"
)

// RuleResult lists the rows that violate one rule on one entity.
// An empty OffendingIDs means the rule passed.
type RuleResult struct {
	Rule         Rule     `json:"rule"`
	Entity       Entity   `json:"entity"`
	OffendingIDs []string `json:"offending_ids"`
}

func (r RuleResult) Passed() bool {
	return len(r.OffendingIDs) == 0
}

// Report is the advisory outcome of a validation pass. It is a value, never an error.
type Report struct {
	CheckedAt time.Time    `json:"checked_at"`
	Results   []RuleResult `json:"results"`
}

func (r Report) Passed() bool {
	return r.FindingCount() == 0
}

// FindingCount is the total number of offending rows across all rules.
func (r Report) FindingCount() int {
	total := 0
	for _, res := range r.Results {
		total += len(res.OffendingIDs)
	}
	return total
}

// Findings returns only the failing rule results.
func (r Report) Findings() []RuleResult {
	out := make([]RuleResult, 0)
	for _, res := range r.Results {
		if !res.Passed() {
			out = append(out, res)
		}
	}
	return out
}

// Lookup returns the result for rule on entity.
func (r Report) Lookup(rule Rule, entity Entity) (RuleResult, bool) {
	for _, res := range r.Results {
		if res.Rule == rule && res.Entity == entity {
			return res, true
		}
	}
	return RuleResult{}, false
}

// CountByRule sums offending rows per rule across entities.
func (r Report) CountByRule() map[Rule]int {
	out := make(map[Rule]int)
	for _, res := range r.Results {
		if len(res.OffendingIDs) > 0 {
			out[res.Rule] += len(res.OffendingIDs)
		}
	}
	return out
}

// NewResult builds a RuleResult with ids de-duplicated and sorted.
func NewResult(rule Rule, entity Entity, ids []string) RuleResult {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return RuleResult{Rule: rule, Entity: entity, OffendingIDs: out}
}
