package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
	"github.com/smallbiznis/telcopulse/internal/source/sourcetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() sourcedomain.Snapshot {
	return sourcedomain.Snapshot{
		Customers: []sourcedomain.Customer{
			sourcetest.Customer("C1"),
			sourcetest.Customer("C2"),
			sourcetest.Customer("C3"),
		},
		Plans: []sourcedomain.Plan{
			sourcetest.Plan("P1", "Prepaid", "50000"),
			sourcetest.Plan("P2", "Prepaid", "75000"),
			sourcetest.Plan("P3", "Fiber", "300000"),
		},
		Sims: []sourcedomain.SimConnection{
			sourcetest.Sim("S1", "C1", "P1", "Active"),
			sourcetest.Sim("S2", "C1", "P2", "Expired"),
			sourcetest.Sim("S3", "C2", "P9", "Active"),
		},
		Fibers: []sourcedomain.FiberConnection{
			sourcetest.Fiber("F1", "C1", "P3", "Active"),
		},
		Payments: []sourcedomain.Payment{
			sourcetest.Payment("PAY1", "C1", "P1", "100", "Success", sourcetest.Date(2024, time.January, 10)),
			sourcetest.Payment("PAY2", "C1", "P1", "50", "Failed", sourcetest.Date(2024, time.February, 10)),
			sourcetest.Payment("PAY3", "C1", "P3", "0.10", "Success", sourcetest.Date(2024, time.March, 1)),
			sourcetest.Payment("PAY4", "C2", "P2", "0.20", "Success", sourcetest.Date(2023, time.December, 31)),
			sourcetest.Payment("PAY5", "C2", "P1", "10", "Success", nil),
			sourcetest.Payment("PAY6", "GHOST", "P1", "999", "Success", sourcetest.Date(2024, time.January, 1)),
		},
	}
}

func TestOverviewKeepsCustomersWithoutConnections(t *testing.T) {
	out := Overview(fixture())
	require.Len(t, out, 3)

	assert.Equal(t, 2, out[0].SimCount)
	assert.Equal(t, 1, out[0].FiberCount)
	assert.Equal(t, 1, out[1].SimCount)
	assert.Equal(t, "C3", out[2].CustomerID)
	assert.Zero(t, out[2].SimCount)
	assert.Zero(t, out[2].FiberCount)
}

func TestSubscriptionDetailsJoinNames(t *testing.T) {
	snap := fixture()

	mobile := MobileSubscriptions(snap)
	require.Len(t, mobile, 3)
	assert.Equal(t, "Customer C1", mobile[0].CustomerName)
	assert.Equal(t, "Plan P1", mobile[0].PlanName)
	assert.True(t, mobile[0].Price.Equal(decimal.NewFromInt(50000)))
	// dangling plan keeps the row with empty plan columns
	assert.Equal(t, "P9", mobile[2].PlanID)
	assert.Empty(t, mobile[2].PlanName)
	assert.True(t, mobile[2].Price.IsZero())

	fiber := FiberSubscriptions(snap)
	require.Len(t, fiber, 1)
	assert.Equal(t, "Fiber", fiber[0].PlanType)
}

func TestCustomerValuesConserveRevenue(t *testing.T) {
	values := CustomerValues(fixture().Customers, fixture().Payments)
	require.Len(t, values, 3)

	c1 := values[0]
	assert.Equal(t, 2, c1.SuccessfulPaymentCount)
	assert.Equal(t, "100.1", c1.TotalRevenue.String())
	assert.Equal(t, *sourcetest.Date(2024, time.January, 10), *c1.FirstPaymentDate)
	assert.Equal(t, *sourcetest.Date(2024, time.March, 1), *c1.LastPaymentDate)

	// undated payments still count toward revenue
	c2 := values[1]
	assert.Equal(t, 2, c2.SuccessfulPaymentCount)
	assert.Equal(t, "10.2", c2.TotalRevenue.String())
	assert.Equal(t, *sourcetest.Date(2023, time.December, 31), *c2.LastPaymentDate)

	c3 := values[2]
	assert.Zero(t, c3.SuccessfulPaymentCount)
	assert.True(t, c3.TotalRevenue.IsZero())
	assert.Nil(t, c3.FirstPaymentDate)
	assert.Nil(t, c3.LastPaymentDate)
}

func TestCustomerValuesDecimalExactness(t *testing.T) {
	customers := []sourcedomain.Customer{sourcetest.Customer("C1")}
	var payments []sourcedomain.Payment
	for i := 0; i < 10; i++ {
		payments = append(payments, sourcetest.Payment("P"+string(rune('a'+i)), "C1", "P1", "0.1", "Success", sourcetest.Date(2024, time.January, 1)))
	}
	values := CustomerValues(customers, payments)
	assert.Equal(t, "1", values[0].TotalRevenue.String())
}

func TestPlanPerformances(t *testing.T) {
	perf := PlanPerformances(fixture().Plans, fixture().Payments)
	require.Len(t, perf, 3)

	// plan revenue includes payments whose customer row is missing
	p1 := perf[0]
	assert.Equal(t, 3, p1.UniquePayingCustomers)
	assert.Equal(t, 3, p1.SuccessfulTransactionCount)
	assert.Equal(t, "1109", p1.TotalRevenue.String())

	p2 := perf[1]
	assert.Equal(t, 1, p2.UniquePayingCustomers)
	assert.Equal(t, "0.2", p2.TotalRevenue.String())

	p3 := perf[2]
	assert.Equal(t, 1, p3.SuccessfulTransactionCount)
}

func TestPlanPerformancesKeepsUnpaidPlans(t *testing.T) {
	perf := PlanPerformances([]sourcedomain.Plan{sourcetest.Plan("P1", "Prepaid", "1")}, nil)
	require.Len(t, perf, 1)
	assert.Zero(t, perf[0].SuccessfulTransactionCount)
	assert.True(t, perf[0].TotalRevenue.IsZero())
}

func TestARPUByPlanType(t *testing.T) {
	plans := append(fixture().Plans, sourcetest.Plan("P4", "Postpaid", "1"))
	arpu := ARPUByPlanType(plans, fixture().Payments)
	require.Len(t, arpu, 3)

	assert.Equal(t, "Fiber", arpu[0].PlanType)
	assert.Equal(t, "0.1", arpu[0].ARPU.String())

	assert.Equal(t, "Postpaid", arpu[1].PlanType)
	assert.True(t, arpu[1].ARPU.IsZero())

	// Prepaid: (100 + 0.20 + 10 + 999 ghost) / 3 distinct payers
	prepaid := arpu[2]
	assert.Equal(t, 3, prepaid.PayingCustomers)
	assert.Equal(t, "1109.2", prepaid.TotalRevenue.String())
	assert.Equal(t, "369.73", prepaid.ARPU.String())
}

func TestComputeMatchesIndividualViews(t *testing.T) {
	snap := fixture()
	res, err := Compute(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, Overview(snap), res.Overview)
	assert.Equal(t, CustomerValues(snap.Customers, snap.Payments), res.CustomerValue)
	assert.Equal(t, PlanPerformances(snap.Plans, snap.Payments), res.Plans)
	assert.Len(t, res.Mobile, 3)
	assert.Len(t, res.Fiber, 1)
	assert.Len(t, res.ARPU, 2)
}

func TestComputeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Compute(ctx, fixture())
	assert.ErrorIs(t, err, context.Canceled)
}
