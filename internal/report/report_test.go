package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/telcopulse/internal/aggregate"
	"github.com/smallbiznis/telcopulse/internal/providers/pdf"
	"github.com/smallbiznis/telcopulse/internal/risk"
	"github.com/smallbiznis/telcopulse/internal/rollup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportTime = time.Date(2024, 6, 30, 2, 0, 0, 0, time.UTC)

type stubSource struct {
	facts  []rollup.MonthlyRevenueFact
	flags  []risk.CustomerRiskFlag
	plans  []aggregate.PlanPerformance
	values []aggregate.CustomerValue
	err    error
	level  string
}

func (s *stubSource) MonthlyRevenue(context.Context) ([]rollup.MonthlyRevenueFact, error) {
	return s.facts, s.err
}

func (s *stubSource) CustomerRisk(_ context.Context, level string) ([]risk.CustomerRiskFlag, error) {
	s.level = level
	return s.flags, s.err
}

func (s *stubSource) PlanPerformance(context.Context) ([]aggregate.PlanPerformance, error) {
	return s.plans, s.err
}

func (s *stubSource) CustomerValues(context.Context) ([]aggregate.CustomerValue, error) {
	return s.values, s.err
}

func sampleSource() *stubSource {
	last := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	return &stubSource{
		facts: []rollup.MonthlyRevenueFact{
			{YearMonth: "2024-04", TotalRevenue: decimal.Zero},
			{YearMonth: "2024-05", TotalRevenue: decimal.RequireFromString("150.5"), SuccessfulTransactionCount: 2},
		},
		flags: []risk.CustomerRiskFlag{
			{CustomerID: "C1", RiskLevel: risk.LevelLow, Reason: risk.ReasonRecentPayer, LastPaymentDate: &last},
			{CustomerID: "C2", RiskLevel: risk.LevelHigh, Reason: risk.ReasonNoPaymentHistory},
		},
		plans: []aggregate.PlanPerformance{
			{PlanID: "P1", PlanName: "Basic", PlanType: "Mobile", UniquePayingCustomers: 1, SuccessfulTransactionCount: 1, TotalRevenue: decimal.NewFromInt(100)},
		},
		values: []aggregate.CustomerValue{
			{CustomerID: "C1", Name: "Ana", SuccessfulPaymentCount: 1, TotalRevenue: decimal.NewFromInt(100), FirstPaymentDate: &last, LastPaymentDate: &last},
			{CustomerID: "C2", Name: "Budi", TotalRevenue: decimal.Zero},
		},
	}
}

func TestParseKindAndFormat(t *testing.T) {
	k, err := ParseKind(" Monthly ")
	require.NoError(t, err)
	assert.Equal(t, KindMonthly, k)

	_, err = ParseKind("invoices")
	assert.ErrorIs(t, err, ErrUnknownKind)

	f, err := ParseFormat("markdown")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	_, err = ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestBuildMonthlySummarizes(t *testing.T) {
	ds, err := Build(context.Background(), sampleSource(), KindMonthly, reportTime)
	require.NoError(t, err)

	assert.Equal(t, reportTime, ds.GeneratedAt)
	assert.Equal(t, [][]string{{"2024-04", "0.00", "0"}, {"2024-05", "150.50", "2"}}, ds.Rows)
	assert.Contains(t, ds.Summary, SummaryLine{Label: "Total revenue", Value: "150.50"})
}

func TestBuildRiskReadsAllLevels(t *testing.T) {
	src := sampleSource()
	src.level = "unset"
	ds, err := Build(context.Background(), src, KindRisk, reportTime)
	require.NoError(t, err)

	assert.Equal(t, "", src.level)
	assert.Equal(t, []string{"C2", "High", risk.ReasonNoPaymentHistory, "-"}, ds.Rows[1])
	assert.Contains(t, ds.Summary, SummaryLine{Label: "High", Value: "1"})
}

func TestBuildPropagatesSourceErrors(t *testing.T) {
	boom := errors.New("boom")
	src := &stubSource{err: boom}
	for _, k := range Kinds {
		_, err := Build(context.Background(), src, k, reportTime)
		if !errors.Is(err, boom) {
			t.Fatalf("%s: expected wrapped source error, got %v", k, err)
		}
	}
}

func TestRenderTable(t *testing.T) {
	ds := CustomerValues(sampleSource().values)
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(nil).Render(context.Background(), &buf, ds, FormatTable))

	out := buf.String()
	assert.Contains(t, out, "Customer value")
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "(2 rows)")
	assert.Contains(t, out, "Paying: 1")
}

func TestRenderCSV(t *testing.T) {
	ds := PlanPerformance(sampleSource().plans)
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(nil).Render(context.Background(), &buf, ds, FormatCSV))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Plan,Name,Type,Customers,Transactions,Revenue", lines[0])
	assert.Equal(t, "P1,Basic,Mobile,1,1,100.00", lines[1])
}

func TestRenderJSONKeepsTypedRecords(t *testing.T) {
	ds, err := Build(context.Background(), sampleSource(), KindMonthly, reportTime)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(nil).Render(context.Background(), &buf, ds, FormatJSON))

	var got struct {
		Kind    string            `json:"kind"`
		Summary map[string]string `json:"summary"`
		Data    []map[string]any  `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "monthly", got.Kind)
	assert.Equal(t, "150.50", got.Summary["total-revenue"])
	require.Len(t, got.Data, 2)
	assert.Equal(t, "2024-05", got.Data[1]["year_month"])
}

func TestRenderPDFRequiresProvider(t *testing.T) {
	ds := MonthlyRevenue(sampleSource().facts)
	err := NewRenderer(&pdf.NoOpProvider{}).Render(context.Background(), &bytes.Buffer{}, ds, FormatPDF)
	assert.ErrorIs(t, err, ErrPDFUnavailable)
}

func TestRenderPDF(t *testing.T) {
	ds, err := Build(context.Background(), sampleSource(), KindRisk, reportTime)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(pdf.New()).Render(context.Background(), &buf, ds, FormatPDF))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestFileName(t *testing.T) {
	ds, err := Build(context.Background(), sampleSource(), KindPlans, reportTime)
	require.NoError(t, err)

	assert.Equal(t, "plan-performance-20240630.pdf", FileName(ds, FormatPDF))
	assert.Equal(t, "plan-performance-20240630.txt", FileName(ds, FormatTable))
}
