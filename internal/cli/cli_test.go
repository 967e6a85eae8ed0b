package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telcopulse/internal/clock"
	"github.com/smallbiznis/telcopulse/internal/insight"
	"github.com/smallbiznis/telcopulse/internal/lock"
	qualitydomain "github.com/smallbiznis/telcopulse/internal/quality/domain"
	"github.com/smallbiznis/telcopulse/internal/refresh"
	"github.com/smallbiznis/telcopulse/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestExitCode(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"nil":      {nil, 0},
		"findings": {fmt.Errorf("strict: %w", refresh.ErrFindingsPresent), exitFindings},
		"lock":     {fmt.Errorf("acquire lock: %w", lock.ErrNotAcquired), exitLockContest},
		"other":    {errors.New("boom"), exitFailure},
	}
	for name, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("%s: expected exit code %d, got %d", name, tc.want, got)
		}
	}
}

func TestRootRegistersCommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"serve", "refresh", "report", "migrate"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	refreshCmd, _, _ := root.Find([]string{"refresh"})
	assert.NotNil(t, refreshCmd.Flags().Lookup("strict"))
	assert.NotNil(t, refreshCmd.Flags().Lookup("json"))
}

func TestReportRejectsUnknownKind(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"report", "invoices"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoices")
}

func TestReportRejectsUnknownFormat(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"report", "monthly", "--format", "xlsx"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	assert.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestApplicationGraphsResolve(t *testing.T) {
	var (
		orchestrator *refresh.Orchestrator
		svc          *insight.Service
		renderer     *report.Renderer
		clk          clock.Clock
	)

	require.NoError(t, fx.ValidateApp(serveOptions()))
	require.NoError(t, fx.ValidateApp(pipeline(), fx.Populate(&orchestrator)))
	require.NoError(t, fx.ValidateApp(reportOptions(), fx.Populate(&svc, &renderer, &clk)))
	require.NoError(t, fx.ValidateApp(infrastructure()))
}

func TestWriteRunSummary(t *testing.T) {
	result := refresh.RunResult{
		RunID:     snowflake.ID(42),
		Status:    refresh.StatusPartialFindings,
		LastState: refresh.StateClassifying,
		Duration:  1500 * time.Millisecond,
		Report: qualitydomain.Report{Results: []qualitydomain.RuleResult{
			qualitydomain.NewResult(qualitydomain.RuleDuplicateEmail, qualitydomain.EntityCustomer, []string{"C1", "C2"}),
		}},
		Rows: map[string]int{
			refresh.ArtifactMonthlyRevenue: 3,
			refresh.ArtifactCustomerRisk:   2,
		},
	}

	var buf bytes.Buffer
	writeRunSummary(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "Refresh run 42")
	assert.Contains(t, out, "partial_findings")
	assert.Contains(t, out, "Rows monthly_revenue_facts")
	assert.Contains(t, out, string(qualitydomain.RuleDuplicateEmail))
	assert.Contains(t, out, "C1, C2")
	assert.Less(t, strings.Index(out, "customer_risk_flags"), strings.Index(out, "monthly_revenue_facts"))
}

func TestWriteRunJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRunJSON(&buf, refresh.RunResult{
		RunID:  snowflake.ID(7),
		Status: refresh.StatusSuccess,
	}))
	assert.Contains(t, buf.String(), `"id": "7"`)
	assert.Contains(t, buf.String(), `"status": "success"`)
}
