package risk

import (
	"fmt"
	"time"

	"github.com/smallbiznis/telcopulse/internal/config"
)

const day = 24 * time.Hour

// Classify maps the recency of the last successful payment to a risk level.
// Rules are checked in order and the first match wins; "older than" is strict.
func Classify(lastPayment *time.Time, now time.Time, thresholds config.RiskConfig) (Level, string) {
	if lastPayment == nil {
		return LevelHigh, ReasonNoPaymentHistory
	}
	age := now.Sub(*lastPayment)
	if age > time.Duration(thresholds.HighAfterDays)*day {
		return LevelHigh, fmt.Sprintf("No payments in >%d days", thresholds.HighAfterDays)
	}
	if age > time.Duration(thresholds.MediumAfterDays)*day {
		return LevelMedium, fmt.Sprintf("No payments in >%d days", thresholds.MediumAfterDays)
	}
	return LevelLow, ReasonRecentPayer
}
