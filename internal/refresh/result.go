package refresh

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	qualitydomain "github.com/smallbiznis/telcopulse/internal/quality/domain"
)

// State is a step of the refresh state machine.
type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateReconciling State = "reconciling"
	StateAggregating State = "aggregating"
	StateRollingUp   State = "rolling_up"
	StateClassifying State = "classifying"
	StateFailed      State = "failed"
)

type Status string

const (
	StatusRunning         Status = "running"
	StatusSuccess         Status = "success"
	StatusPartialFindings Status = "partial_findings"
	StatusFailed          Status = "failed"
)

const (
	ArtifactMonthlyRevenue = "monthly_revenue_facts"
	ArtifactCustomerRisk   = "customer_risk_flags"
)

const (
	TriggerSchedule = "schedule"
	TriggerAPI      = "api"
	TriggerCLI      = "cli"
)

// RunResult is the outcome of one refresh run.
type RunResult struct {
	RunID    snowflake.ID
	Pipeline string
	Trigger  string
	Status   Status
	// LastState is the furthest stage the run entered.
	LastState  State
	Report     qualitydomain.Report
	Reconciled []string
	Normalized []string
	// Rows holds the published row count per artifact.
	Rows           map[string]int
	StartedAt      time.Time
	FinishedAt     time.Time
	Duration       time.Duration
	Err            error
	ArtifactErrors []*ArtifactError
}

// Strict turns findings into an error for callers that treat dirty data as
// fatal. Hard failures are returned unchanged.
func (r RunResult) Strict() error {
	if r.Err != nil {
		return r.Err
	}
	if !r.Report.Passed() {
		return fmt.Errorf("%w: %d offending records", ErrFindingsPresent, r.Report.FindingCount())
	}
	return nil
}

func (r *RunResult) finalize(hardErr error) {
	switch {
	case hardErr != nil:
		r.Status = StatusFailed
		r.Err = hardErr
	case len(r.ArtifactErrors) > 0:
		errs := make([]error, len(r.ArtifactErrors))
		for i, e := range r.ArtifactErrors {
			errs[i] = e
		}
		r.Status = StatusFailed
		r.Err = errors.Join(errs...)
	case !r.Report.Passed():
		r.Status = StatusPartialFindings
	default:
		r.Status = StatusSuccess
	}
}

// FinalState is the state the machine rests in after the run.
func (r RunResult) FinalState() State {
	if r.Status == StatusFailed {
		return StateFailed
	}
	return StateIdle
}
