package quality

import (
	"reflect"
	"testing"
	"time"

	"github.com/smallbiznis/telcopulse/internal/quality/domain"
	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
	"github.com/smallbiznis/telcopulse/internal/source/sourcetest"
)

func cleanSnapshot() sourcedomain.Snapshot {
	return sourcedomain.Snapshot{
		Customers: []sourcedomain.Customer{sourcetest.Customer("C1"), sourcetest.Customer("C2")},
		Plans:     []sourcedomain.Plan{sourcetest.Plan("P1", "Prepaid", "10")},
		Sims:      []sourcedomain.SimConnection{sourcetest.Sim("S1", "C1", "P1", "Active")},
		Fibers:    []sourcedomain.FiberConnection{sourcetest.Fiber("F1", "C2", "P1", "Active")},
		Payments: []sourcedomain.Payment{
			sourcetest.Payment("PAY1", "C1", "P1", "10", "Success", sourcetest.Date(2024, time.January, 5)),
		},
	}
}

func mustLookup(t *testing.T, report domain.Report, rule domain.Rule, entity domain.Entity) []string {
	t.Helper()
	res, ok := report.Lookup(rule, entity)
	if !ok {
		t.Fatalf("expected result for %s/%s", rule, entity)
	}
	return res.OffendingIDs
}

func TestValidateCleanSnapshotPasses(t *testing.T) {
	report := Validate(cleanSnapshot())
	if !report.Passed() {
		t.Fatalf("expected clean report, got findings %+v", report.Findings())
	}
	if len(report.Results) != 18 {
		t.Fatalf("expected every rule to report, got %d results", len(report.Results))
	}
}

func TestValidateDuplicates(t *testing.T) {
	snap := cleanSnapshot()
	c3 := sourcetest.Customer("C3")
	c3.PhoneNumber = snap.Customers[0].PhoneNumber
	c3.Email = sourcetest.Str("  C2@EXAMPLE.com ")
	c4 := sourcetest.Customer("C4")
	c4.Email = nil
	c5 := sourcetest.Customer("C5")
	c5.Email = nil
	snap.Customers = append(snap.Customers, c3, c4, c5)

	dupSim := sourcetest.Sim("S2", "C2", "P1", "Inactive")
	dupSim.SimNumber = snap.Sims[0].SimNumber
	snap.Sims = append(snap.Sims, dupSim)

	report := Validate(snap)

	if got := mustLookup(t, report, domain.RuleDuplicatePhoneNumber, domain.EntityCustomer); !reflect.DeepEqual(got, []string{"C1", "C3"}) {
		t.Fatalf("expected phone duplicates [C1 C3], got %v", got)
	}
	// null emails never collide with each other
	if got := mustLookup(t, report, domain.RuleDuplicateEmail, domain.EntityCustomer); !reflect.DeepEqual(got, []string{"C2", "C3"}) {
		t.Fatalf("expected email duplicates [C2 C3], got %v", got)
	}
	if got := mustLookup(t, report, domain.RuleDuplicateSimNumber, domain.EntitySimConnection); !reflect.DeepEqual(got, []string{"S1", "S2"}) {
		t.Fatalf("expected sim duplicates [S1 S2], got %v", got)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	snap := cleanSnapshot()
	snap.Customers[1].CustomerType = sourcetest.Str("   ")
	snap.Sims[0].PlanID = nil
	snap.Payments = append(snap.Payments, sourcedomain.Payment{PaymentID: "PAY2", CustomerID: sourcetest.Str("C1"), PlanID: sourcetest.Str("P1")})

	report := Validate(snap)

	if got := mustLookup(t, report, domain.RuleMissingRequiredField, domain.EntityCustomer); !reflect.DeepEqual(got, []string{"C2"}) {
		t.Fatalf("expected [C2], got %v", got)
	}
	if got := mustLookup(t, report, domain.RuleMissingRequiredField, domain.EntitySimConnection); !reflect.DeepEqual(got, []string{"S1"}) {
		t.Fatalf("expected [S1], got %v", got)
	}
	if got := mustLookup(t, report, domain.RuleMissingRequiredField, domain.EntityPayment); !reflect.DeepEqual(got, []string{"PAY2"}) {
		t.Fatalf("expected [PAY2], got %v", got)
	}
	// a missing plan is not also a dangling plan reference
	if got := mustLookup(t, report, domain.RuleDanglingPlanReference, domain.EntitySimConnection); len(got) != 0 {
		t.Fatalf("expected no dangling plan findings, got %v", got)
	}
}

func TestValidateDateOrdering(t *testing.T) {
	snap := cleanSnapshot()
	registered := time.Date(2023, time.March, 1, 18, 0, 0, 0, time.UTC)
	snap.Customers[0].RegistrationDate = &registered
	snap.Customers[1].DOB = sourcetest.Date(2024, time.January, 1)
	snap.Sims[0].ActivationDate = sourcetest.Date(2023, time.February, 28)
	// same calendar day, earlier hour
	sameDay := time.Date(2023, time.March, 1, 9, 0, 0, 0, time.UTC)
	snap.Payments[0].PaymentDate = &sameDay

	report := Validate(snap)

	if got := mustLookup(t, report, domain.RuleRegistrationBeforeDOB, domain.EntityCustomer); !reflect.DeepEqual(got, []string{"C2"}) {
		t.Fatalf("expected [C2], got %v", got)
	}
	if got := mustLookup(t, report, domain.RuleActivationBeforeRegistration, domain.EntitySimConnection); !reflect.DeepEqual(got, []string{"S1"}) {
		t.Fatalf("expected [S1], got %v", got)
	}
	if got := mustLookup(t, report, domain.RulePaymentBeforeRegistration, domain.EntityPayment); len(got) != 0 {
		t.Fatalf("expected same-day payment to pass, got %v", got)
	}
}

func TestValidateReferencesAndAmounts(t *testing.T) {
	snap := cleanSnapshot()
	snap.Fibers = append(snap.Fibers, sourcetest.Fiber("F2", "GHOST", "P9", "Active"))
	snap.Payments = append(snap.Payments, sourcetest.Payment("PAY3", "C1", "P1", "-5", "Success", sourcetest.Date(2024, time.February, 1)))

	report := Validate(snap)

	if got := mustLookup(t, report, domain.RuleDanglingCustomerReference, domain.EntityFiberConnection); !reflect.DeepEqual(got, []string{"F2"}) {
		t.Fatalf("expected [F2], got %v", got)
	}
	if got := mustLookup(t, report, domain.RuleDanglingPlanReference, domain.EntityFiberConnection); !reflect.DeepEqual(got, []string{"F2"}) {
		t.Fatalf("expected [F2], got %v", got)
	}
	if got := mustLookup(t, report, domain.RuleNegativeAmount, domain.EntityPayment); !reflect.DeepEqual(got, []string{"PAY3"}) {
		t.Fatalf("expected [PAY3], got %v", got)
	}
	if report.FindingCount() != 3 {
		t.Fatalf("expected 3 findings, got %d", report.FindingCount())
	}
}

func TestValidateDoesNotShortCircuit(t *testing.T) {
	snap := cleanSnapshot()
	snap.Customers[0].PhoneNumber = nil
	snap.Customers = append(snap.Customers, snap.Customers[1])
	snap.Customers[2].CustomerID = "C3"
	snap.Payments[0].CustomerID = sourcetest.Str("GHOST")

	counts := Validate(snap).CountByRule()
	for _, rule := range []domain.Rule{
		domain.RuleMissingRequiredField,
		domain.RuleDuplicatePhoneNumber,
		domain.RuleDuplicateEmail,
		domain.RuleDanglingCustomerReference,
	} {
		if counts[rule] == 0 {
			t.Fatalf("expected findings for %s, got %v", rule, counts)
		}
	}
}
