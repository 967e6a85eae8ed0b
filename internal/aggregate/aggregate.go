package aggregate

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
	"golang.org/x/sync/errgroup"
)

const arpuPlaces = 2

// Compute derives every view from snap concurrently. The views are
// independent of each other; only cancellation can fail the call.
func Compute(ctx context.Context, snap sourcedomain.Snapshot) (Result, error) {
	var res Result
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		res.Overview = Overview(snap)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		res.Mobile = MobileSubscriptions(snap)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		res.Fiber = FiberSubscriptions(snap)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		res.CustomerValue = CustomerValues(snap.Customers, snap.Payments)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		res.Plans = PlanPerformances(snap.Plans, snap.Payments)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		res.ARPU = ARPUByPlanType(snap.Plans, snap.Payments)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Overview left-joins customers with their distinct SIM and fiber counts.
func Overview(snap sourcedomain.Snapshot) []CustomerOverview {
	sims := distinctByCustomer(len(snap.Sims), func(i int) (*string, string) {
		return snap.Sims[i].CustomerID, snap.Sims[i].SimID
	})
	fibers := distinctByCustomer(len(snap.Fibers), func(i int) (*string, string) {
		return snap.Fibers[i].CustomerID, snap.Fibers[i].FiberID
	})

	out := make([]CustomerOverview, 0, len(snap.Customers))
	for _, c := range snap.Customers {
		out = append(out, CustomerOverview{
			CustomerID:       c.CustomerID,
			Name:             c.Name,
			Gender:           c.Gender,
			City:             c.City,
			CustomerType:     sourcedomain.Deref(c.CustomerType),
			Status:           c.Status,
			RegistrationDate: c.RegistrationDate,
			SimCount:         len(sims[c.CustomerID]),
			FiberCount:       len(fibers[c.CustomerID]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}

func MobileSubscriptions(snap sourcedomain.Snapshot) []MobileSubscription {
	names := customerNames(snap.Customers)
	plans := planIndex(snap.Plans)

	out := make([]MobileSubscription, 0, len(snap.Sims))
	for _, s := range snap.Sims {
		customerID := sourcedomain.Deref(s.CustomerID)
		planID := sourcedomain.Deref(s.PlanID)
		plan := plans[planID]
		out = append(out, MobileSubscription{
			SimID:          s.SimID,
			SimNumber:      sourcedomain.Deref(s.SimNumber),
			CustomerID:     customerID,
			CustomerName:   names[customerID],
			PlanID:         planID,
			PlanName:       plan.PlanName,
			PlanType:       plan.PlanType,
			Price:          price(plan),
			ActivationDate: s.ActivationDate,
			Status:         s.Status,
			DataLimitGB:    s.DataLimitGB,
			CallMinutes:    s.CallMinutes,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SimID < out[j].SimID })
	return out
}

func FiberSubscriptions(snap sourcedomain.Snapshot) []FiberSubscription {
	names := customerNames(snap.Customers)
	plans := planIndex(snap.Plans)

	out := make([]FiberSubscription, 0, len(snap.Fibers))
	for _, f := range snap.Fibers {
		customerID := sourcedomain.Deref(f.CustomerID)
		planID := sourcedomain.Deref(f.PlanID)
		plan := plans[planID]
		out = append(out, FiberSubscription{
			FiberID:          f.FiberID,
			CustomerID:       customerID,
			CustomerName:     names[customerID],
			PlanID:           planID,
			PlanName:         plan.PlanName,
			PlanType:         plan.PlanType,
			Price:            price(plan),
			InstallationDate: f.InstallationDate,
			Status:           f.Status,
			SpeedMbps:        f.SpeedMbps,
			DataLimitGB:      f.DataLimitGB,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiberID < out[j].FiberID })
	return out
}

// CustomerValues sums successful payments per customer. Every customer
// appears exactly once; payments for unknown customers are ignored.
func CustomerValues(customers []sourcedomain.Customer, payments []sourcedomain.Payment) []CustomerValue {
	byID := make(map[string]*CustomerValue, len(customers))
	out := make([]CustomerValue, len(customers))
	for i, c := range customers {
		out[i] = CustomerValue{CustomerID: c.CustomerID, Name: c.Name, TotalRevenue: decimal.Zero}
		byID[c.CustomerID] = &out[i]
	}

	for _, p := range payments {
		if !p.IsSuccessful() {
			continue
		}
		v, ok := byID[sourcedomain.Deref(p.CustomerID)]
		if !ok {
			continue
		}
		v.SuccessfulPaymentCount++
		v.TotalRevenue = v.TotalRevenue.Add(p.Amount())
		if p.PaymentDate != nil {
			v.FirstPaymentDate = earliest(v.FirstPaymentDate, *p.PaymentDate)
			v.LastPaymentDate = latest(v.LastPaymentDate, *p.PaymentDate)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}

func PlanPerformances(plans []sourcedomain.Plan, payments []sourcedomain.Payment) []PlanPerformance {
	byID := make(map[string]*PlanPerformance, len(plans))
	payers := make(map[string]map[string]struct{}, len(plans))
	out := make([]PlanPerformance, len(plans))
	for i, p := range plans {
		out[i] = PlanPerformance{PlanID: p.PlanID, PlanName: p.PlanName, PlanType: p.PlanType, TotalRevenue: decimal.Zero}
		byID[p.PlanID] = &out[i]
		payers[p.PlanID] = map[string]struct{}{}
	}

	for _, p := range payments {
		if !p.IsSuccessful() {
			continue
		}
		planID := sourcedomain.Deref(p.PlanID)
		perf, ok := byID[planID]
		if !ok {
			continue
		}
		perf.SuccessfulTransactionCount++
		perf.TotalRevenue = perf.TotalRevenue.Add(p.Amount())
		if customerID := sourcedomain.Deref(p.CustomerID); customerID != "" {
			payers[planID][customerID] = struct{}{}
		}
	}
	for i := range out {
		out[i].UniquePayingCustomers = len(payers[out[i].PlanID])
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PlanID < out[j].PlanID })
	return out
}

// ARPUByPlanType rounds ARPU half away from zero to two places; a plan type
// with no paying customer has zero ARPU.
func ARPUByPlanType(plans []sourcedomain.Plan, payments []sourcedomain.Payment) []PlanTypeARPU {
	planType := make(map[string]string, len(plans))
	revenue := map[string]decimal.Decimal{}
	payers := map[string]map[string]struct{}{}
	for _, p := range plans {
		planType[p.PlanID] = p.PlanType
		if _, ok := revenue[p.PlanType]; !ok {
			revenue[p.PlanType] = decimal.Zero
			payers[p.PlanType] = map[string]struct{}{}
		}
	}

	for _, p := range payments {
		if !p.IsSuccessful() {
			continue
		}
		typ, ok := planType[sourcedomain.Deref(p.PlanID)]
		if !ok {
			continue
		}
		revenue[typ] = revenue[typ].Add(p.Amount())
		if customerID := sourcedomain.Deref(p.CustomerID); customerID != "" {
			payers[typ][customerID] = struct{}{}
		}
	}

	out := make([]PlanTypeARPU, 0, len(revenue))
	for typ, total := range revenue {
		count := len(payers[typ])
		arpu := decimal.Zero
		if count > 0 {
			arpu = total.Div(decimal.NewFromInt(int64(count))).Round(arpuPlaces)
		}
		out = append(out, PlanTypeARPU{
			PlanType:        typ,
			PayingCustomers: count,
			TotalRevenue:    total,
			ARPU:            arpu,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlanType < out[j].PlanType })
	return out
}

func distinctByCustomer(n int, at func(i int) (*string, string)) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{})
	for i := 0; i < n; i++ {
		customerID, id := at(i)
		if customerID == nil {
			continue
		}
		set, ok := out[*customerID]
		if !ok {
			set = make(map[string]struct{})
			out[*customerID] = set
		}
		set[id] = struct{}{}
	}
	return out
}

func customerNames(customers []sourcedomain.Customer) map[string]string {
	out := make(map[string]string, len(customers))
	for _, c := range customers {
		out[c.CustomerID] = c.Name
	}
	return out
}

func planIndex(plans []sourcedomain.Plan) map[string]sourcedomain.Plan {
	out := make(map[string]sourcedomain.Plan, len(plans))
	for _, p := range plans {
		out[p.PlanID] = p
	}
	return out
}

func price(p sourcedomain.Plan) decimal.Decimal {
	if !p.Price.Valid {
		return decimal.Zero
	}
	return p.Price.Decimal
}

func earliest(current *time.Time, candidate time.Time) *time.Time {
	candidate = candidate.UTC()
	if current == nil || candidate.Before(*current) {
		return &candidate
	}
	return current
}

func latest(current *time.Time, candidate time.Time) *time.Time {
	candidate = candidate.UTC()
	if current == nil || candidate.After(*current) {
		return &candidate
	}
	return current
}
