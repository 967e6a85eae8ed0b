package refresh

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	qualitydomain "github.com/smallbiznis/telcopulse/internal/quality/domain"
	"github.com/smallbiznis/telcopulse/pkg/db/option"
	"github.com/smallbiznis/telcopulse/pkg/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Run is the ledger row of one refresh run.
type Run struct {
	ID             snowflake.ID   `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Pipeline       string         `gorm:"column:pipeline;size:64;not null;index" json:"pipeline"`
	Trigger        string         `gorm:"column:trigger_source;size:16;not null" json:"trigger"`
	Status         Status         `gorm:"column:status;size:24;not null" json:"status"`
	LastState      State          `gorm:"column:last_state;size:24;not null" json:"last_state"`
	StartedAt      time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt     *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	DurationMs     int64          `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	FindingCount   int            `gorm:"column:finding_count;not null;default:0" json:"finding_count"`
	Findings       datatypes.JSON `gorm:"column:findings" json:"findings,omitempty"`
	Reconciled     int            `gorm:"column:reconciled_count;not null;default:0" json:"reconciled_count"`
	Normalized     int            `gorm:"column:normalized_count;not null;default:0" json:"normalized_count"`
	RowsReplaced   datatypes.JSON `gorm:"column:rows_replaced" json:"rows_replaced,omitempty"`
	ArtifactErrors datatypes.JSON `gorm:"column:artifact_errors" json:"artifact_errors,omitempty"`
	Error          string         `gorm:"column:error_message" json:"error,omitempty"`
}

func (Run) TableName() string { return "refresh_runs" }

type artifactErrorView struct {
	Artifact string `json:"artifact"`
	Error    string `json:"error"`
}

// Record converts the result into its ledger row.
func (r RunResult) Record() Run {
	row := Run{
		ID:           r.RunID,
		Pipeline:     r.Pipeline,
		Trigger:      r.Trigger,
		Status:       r.Status,
		LastState:    r.LastState,
		StartedAt:    r.StartedAt,
		DurationMs:   r.Duration.Milliseconds(),
		FindingCount: r.Report.FindingCount(),
		Findings:     mustJSON(findingsOrNil(r.Report)),
		Reconciled:   len(r.Reconciled),
		Normalized:   len(r.Normalized),
	}
	if row.Status == "" {
		row.Status = StatusRunning
	}
	if row.LastState == "" {
		row.LastState = StateIdle
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		row.FinishedAt = &finished
	}
	if len(r.Rows) > 0 {
		row.RowsReplaced = mustJSON(r.Rows)
	}
	if len(r.ArtifactErrors) > 0 {
		views := make([]artifactErrorView, len(r.ArtifactErrors))
		for i, e := range r.ArtifactErrors {
			views[i] = artifactErrorView{Artifact: e.Artifact, Error: e.Err.Error()}
		}
		row.ArtifactErrors = mustJSON(views)
	}
	if r.Err != nil {
		row.Error = r.Err.Error()
	}
	return row
}

func findingsOrNil(report qualitydomain.Report) []qualitydomain.RuleResult {
	findings := report.Findings()
	if len(findings) == 0 {
		return nil
	}
	return findings
}

func mustJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return datatypes.JSON(b)
}

// RunStore persists the run ledger.
type RunStore struct {
	repo repository.Repository[Run]
}

func NewRunStore(conn *gorm.DB) *RunStore {
	return &RunStore{repo: repository.ProvideStore[Run](conn)}
}

// Begin records a run as started.
func (s *RunStore) Begin(ctx context.Context, run Run) error {
	return s.repo.Create(ctx, &run)
}

// Complete writes the final outcome onto a started run.
func (s *RunStore) Complete(ctx context.Context, run Run) error {
	return s.repo.Updates(ctx, &Run{ID: run.ID}, map[string]any{
		"status":           run.Status,
		"last_state":       run.LastState,
		"finished_at":      run.FinishedAt,
		"duration_ms":      run.DurationMs,
		"finding_count":    run.FindingCount,
		"findings":         run.Findings,
		"reconciled_count": run.Reconciled,
		"normalized_count": run.Normalized,
		"rows_replaced":    run.RowsReplaced,
		"artifact_errors":  run.ArtifactErrors,
		"error_message":    run.Error,
	})
}

// List returns runs newest first. A non-zero before restricts to older runs.
func (s *RunStore) List(ctx context.Context, pipeline string, before snowflake.ID, limit int) ([]Run, error) {
	opts := []option.QueryOption{option.WithOrder("id DESC")}
	if pipeline != "" {
		opts = append(opts, option.WithWhere("pipeline = ?", pipeline))
	}
	if before != 0 {
		opts = append(opts, option.WithWhere("id < ?", int64(before)))
	}
	if limit > 0 {
		opts = append(opts, option.WithLimit(limit))
	}
	rows, err := s.repo.Find(ctx, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]Run, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

func (s *RunStore) Get(ctx context.Context, id snowflake.ID) (*Run, error) {
	row, err := s.repo.FindOne(ctx, option.WithWhere("id = ?", int64(id)))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrRunNotFound
	}
	return row, nil
}

// Latest returns the newest run of pipeline.
func (s *RunStore) Latest(ctx context.Context, pipeline string) (*Run, error) {
	rows, err := s.List(ctx, pipeline, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRunNotFound
	}
	return &rows[0], nil
}
