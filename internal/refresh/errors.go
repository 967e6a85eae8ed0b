package refresh

import (
	"errors"
	"fmt"

	"github.com/smallbiznis/telcopulse/internal/lock"
	obsmetrics "github.com/smallbiznis/telcopulse/internal/observability/metrics"
	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
)

var (
	ErrInvalidConfig   = errors.New("refresh_invalid_config")
	ErrReplaceFailed   = errors.New("replace_failed")
	ErrFindingsPresent = errors.New("findings_present")
	ErrRunNotFound     = errors.New("refresh_run_not_found")
)

// ArtifactError reports a derived table that could not be replaced. The
// table keeps its previous content.
type ArtifactError struct {
	Artifact string
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrReplaceFailed, e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() []error {
	return []error{ErrReplaceFailed, e.Err}
}

const (
	reasonSourceUnavailable = "source_unavailable"
	reasonLockNotAcquired   = "lock_not_acquired"
	reasonReplaceFailed     = "replace_failed"
)

func classifyReason(err error) string {
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		return reasonLockNotAcquired
	case errors.Is(err, ErrReplaceFailed):
		return reasonReplaceFailed
	case errors.Is(err, sourcedomain.ErrSourceUnavailable):
		return reasonSourceUnavailable
	default:
		return obsmetrics.ClassifyReason(err)
	}
}
