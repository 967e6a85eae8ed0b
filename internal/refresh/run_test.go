package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	qualitydomain "github.com/smallbiznis/telcopulse/internal/quality/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCapturesOutcome(t *testing.T) {
	res := RunResult{
		RunID:     snowflake.ID(42),
		Pipeline:  "telco_derived",
		Trigger:   TriggerCLI,
		LastState: StateClassifying,
		Report: qualitydomain.Report{Results: []qualitydomain.RuleResult{
			qualitydomain.NewResult(qualitydomain.RuleNegativeAmount, qualitydomain.EntityPayment, []string{"PAY9"}),
			qualitydomain.NewResult(qualitydomain.RuleDuplicateEmail, qualitydomain.EntityCustomer, nil),
		}},
		Reconciled: []string{"C1", "C7"},
		Rows:       map[string]int{ArtifactCustomerRisk: 2},
		StartedAt:  runAt,
		FinishedAt: runAt.Add(1500 * time.Millisecond),
		ArtifactErrors: []*ArtifactError{
			{Artifact: ArtifactMonthlyRevenue, Err: errors.New("disk full")},
		},
	}
	res.Duration = res.FinishedAt.Sub(res.StartedAt)
	res.finalize(nil)

	row := res.Record()
	assert.Equal(t, StatusFailed, row.Status)
	assert.EqualValues(t, 1500, row.DurationMs)
	assert.Equal(t, 1, row.FindingCount)
	assert.Equal(t, 2, row.Reconciled)
	assert.Contains(t, row.Error, "replace_failed")

	var findings []qualitydomain.RuleResult
	require.NoError(t, json.Unmarshal(row.Findings, &findings))
	require.Len(t, findings, 1)
	assert.Equal(t, []string{"PAY9"}, findings[0].OffendingIDs)

	var artifacts []artifactErrorView
	require.NoError(t, json.Unmarshal(row.ArtifactErrors, &artifacts))
	assert.Equal(t, []artifactErrorView{{Artifact: ArtifactMonthlyRevenue, Error: "disk full"}}, artifacts)
}

func TestFinalizeStatuses(t *testing.T) {
	dirty := qualitydomain.Report{Results: []qualitydomain.RuleResult{
		qualitydomain.NewResult(qualitydomain.RuleNegativeAmount, qualitydomain.EntityPayment, []string{"PAY1"}),
	}}

	clean := RunResult{}
	clean.finalize(nil)
	assert.Equal(t, StatusSuccess, clean.Status)
	assert.NoError(t, clean.Strict())
	assert.Equal(t, StateIdle, clean.FinalState())

	partial := RunResult{Report: dirty}
	partial.finalize(nil)
	assert.Equal(t, StatusPartialFindings, partial.Status)
	assert.NoError(t, partial.Err)
	assert.ErrorIs(t, partial.Strict(), ErrFindingsPresent)

	failed := RunResult{Report: dirty}
	failed.finalize(context.DeadlineExceeded)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, StateFailed, failed.FinalState())
	assert.ErrorIs(t, failed.Strict(), context.DeadlineExceeded)
}

func TestRunStoreListAndGet(t *testing.T) {
	conn := openDerivedDB(t)
	store := NewRunStore(conn)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Begin(ctx, Run{
			ID:        snowflake.ID(i),
			Pipeline:  "telco_derived",
			Trigger:   TriggerSchedule,
			Status:    StatusRunning,
			LastState: StateIdle,
			StartedAt: runAt.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, store.Begin(ctx, Run{
		ID: snowflake.ID(10), Pipeline: "other", Trigger: TriggerCLI, Status: StatusRunning, LastState: StateIdle, StartedAt: runAt,
	}))

	runs, err := store.List(ctx, "telco_derived", 0, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, snowflake.ID(3), runs[0].ID)
	assert.Equal(t, snowflake.ID(2), runs[1].ID)

	older, err := store.List(ctx, "telco_derived", runs[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, snowflake.ID(1), older[0].ID)

	finished := runAt.Add(time.Hour)
	require.NoError(t, store.Complete(ctx, Run{ID: 2, Status: StatusSuccess, LastState: StateClassifying, FinishedAt: &finished, DurationMs: 12}))
	got, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.EqualValues(t, 12, got.DurationMs)
	assert.Equal(t, TriggerSchedule, got.Trigger)

	latest, err := store.Latest(ctx, "telco_derived")
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(3), latest.ID)

	_, err = store.Get(ctx, 99)
	assert.ErrorIs(t, err, ErrRunNotFound)
}
