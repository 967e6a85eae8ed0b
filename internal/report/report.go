package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/telcopulse/internal/aggregate"
	"github.com/smallbiznis/telcopulse/internal/risk"
	"github.com/smallbiznis/telcopulse/internal/rollup"
)

type Kind string

const (
	KindMonthly   Kind = "monthly"
	KindRisk      Kind = "risk"
	KindPlans     Kind = "plans"
	KindCustomers Kind = "customers"
)

var Kinds = []Kind{KindMonthly, KindRisk, KindPlans, KindCustomers}

var (
	ErrUnknownKind   = errors.New("unknown_report_kind")
	ErrUnknownFormat = errors.New("unknown_report_format")
)

func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// Source is the read side a report is built from.
type Source interface {
	MonthlyRevenue(ctx context.Context) ([]rollup.MonthlyRevenueFact, error)
	CustomerRisk(ctx context.Context, level string) ([]risk.CustomerRiskFlag, error)
	PlanPerformance(ctx context.Context) ([]aggregate.PlanPerformance, error)
	CustomerValues(ctx context.Context) ([]aggregate.CustomerValue, error)
}

type SummaryLine struct {
	Label string
	Value string
}

// Dataset is a report flattened to strings for tabular output. Records
// keeps the typed rows for JSON.
type Dataset struct {
	Kind        Kind
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Headers     []string
	Rows        [][]string
	Summary     []SummaryLine
	Records     any
}

func Build(ctx context.Context, src Source, kind Kind, now time.Time) (Dataset, error) {
	var (
		ds  Dataset
		err error
	)
	switch kind {
	case KindMonthly:
		var facts []rollup.MonthlyRevenueFact
		if facts, err = src.MonthlyRevenue(ctx); err == nil {
			ds = MonthlyRevenue(facts)
		}
	case KindRisk:
		var flags []risk.CustomerRiskFlag
		if flags, err = src.CustomerRisk(ctx, ""); err == nil {
			ds = CustomerRisk(flags)
		}
	case KindPlans:
		var plans []aggregate.PlanPerformance
		if plans, err = src.PlanPerformance(ctx); err == nil {
			ds = PlanPerformance(plans)
		}
	case KindCustomers:
		var values []aggregate.CustomerValue
		if values, err = src.CustomerValues(ctx); err == nil {
			ds = CustomerValues(values)
		}
	default:
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("load %s report: %w", kind, err)
	}
	ds.GeneratedAt = now.UTC()
	return ds, nil
}

func MonthlyRevenue(facts []rollup.MonthlyRevenueFact) Dataset {
	total := decimal.Zero
	txns := 0
	rows := make([][]string, 0, len(facts))
	for _, f := range facts {
		total = total.Add(f.TotalRevenue)
		txns += f.SuccessfulTransactionCount
		rows = append(rows, []string{
			f.YearMonth,
			money(f.TotalRevenue),
			strconv.Itoa(f.SuccessfulTransactionCount),
		})
	}
	return Dataset{
		Kind:     KindMonthly,
		Title:    "Monthly revenue",
		Subtitle: "Successful payments per calendar month",
		Headers:  []string{"Month", "Revenue", "Transactions"},
		Rows:     rows,
		Summary: []SummaryLine{
			{Label: "Months", Value: strconv.Itoa(len(facts))},
			{Label: "Transactions", Value: strconv.Itoa(txns)},
			{Label: "Total revenue", Value: money(total)},
		},
		Records: facts,
	}
}

func CustomerRisk(flags []risk.CustomerRiskFlag) Dataset {
	counts := map[risk.Level]int{}
	rows := make([][]string, 0, len(flags))
	for _, f := range flags {
		counts[f.RiskLevel]++
		rows = append(rows, []string{
			f.CustomerID,
			string(f.RiskLevel),
			f.Reason,
			date(f.LastPaymentDate),
		})
	}
	return Dataset{
		Kind:     KindRisk,
		Title:    "Customer risk",
		Subtitle: "Payment recency per customer",
		Headers:  []string{"Customer", "Risk", "Reason", "Last payment"},
		Rows:     rows,
		Summary: []SummaryLine{
			{Label: "High", Value: strconv.Itoa(counts[risk.LevelHigh])},
			{Label: "Medium", Value: strconv.Itoa(counts[risk.LevelMedium])},
			{Label: "Low", Value: strconv.Itoa(counts[risk.LevelLow])},
		},
		Records: flags,
	}
}

func PlanPerformance(plans []aggregate.PlanPerformance) Dataset {
	total := decimal.Zero
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		total = total.Add(p.TotalRevenue)
		rows = append(rows, []string{
			p.PlanID,
			p.PlanName,
			p.PlanType,
			strconv.Itoa(p.UniquePayingCustomers),
			strconv.Itoa(p.SuccessfulTransactionCount),
			money(p.TotalRevenue),
		})
	}
	return Dataset{
		Kind:     KindPlans,
		Title:    "Plan performance",
		Subtitle: "Successful revenue by plan",
		Headers:  []string{"Plan", "Name", "Type", "Customers", "Transactions", "Revenue"},
		Rows:     rows,
		Summary: []SummaryLine{
			{Label: "Plans", Value: strconv.Itoa(len(plans))},
			{Label: "Total revenue", Value: money(total)},
		},
		Records: plans,
	}
}

func CustomerValues(values []aggregate.CustomerValue) Dataset {
	total := decimal.Zero
	paying := 0
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		total = total.Add(v.TotalRevenue)
		if v.SuccessfulPaymentCount > 0 {
			paying++
		}
		rows = append(rows, []string{
			v.CustomerID,
			v.Name,
			strconv.Itoa(v.SuccessfulPaymentCount),
			money(v.TotalRevenue),
			date(v.FirstPaymentDate),
			date(v.LastPaymentDate),
		})
	}
	return Dataset{
		Kind:     KindCustomers,
		Title:    "Customer value",
		Subtitle: "Lifetime successful payments per customer",
		Headers:  []string{"Customer", "Name", "Payments", "Revenue", "First payment", "Last payment"},
		Rows:     rows,
		Summary: []SummaryLine{
			{Label: "Customers", Value: strconv.Itoa(len(values))},
			{Label: "Paying", Value: strconv.Itoa(paying)},
			{Label: "Total revenue", Value: money(total)},
		},
		Records: values,
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func date(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.DateOnly)
}
