package risk

import (
	"testing"
	"time"

	"github.com/smallbiznis/telcopulse/internal/config"
)

func TestClassify(t *testing.T) {
	now := time.Date(2024, time.June, 30, 12, 0, 0, 0, time.UTC)
	daysAgo := func(d int) *time.Time {
		v := now.Add(-time.Duration(d) * 24 * time.Hour)
		return &v
	}
	thresholds := config.DefaultRiskConfig()

	cases := []struct {
		name       string
		last       *time.Time
		wantLevel  Level
		wantReason string
	}{
		{name: "never paid", last: nil, wantLevel: LevelHigh, wantReason: "No payment history"},
		{name: "200 days", last: daysAgo(200), wantLevel: LevelHigh, wantReason: "No payments in >180 days"},
		{name: "exactly 180 days", last: daysAgo(180), wantLevel: LevelMedium, wantReason: "No payments in >90 days"},
		{name: "120 days", last: daysAgo(120), wantLevel: LevelMedium, wantReason: "No payments in >90 days"},
		{name: "exactly 90 days", last: daysAgo(90), wantLevel: LevelLow, wantReason: "Recent payer"},
		{name: "30 days", last: daysAgo(30), wantLevel: LevelLow, wantReason: "Recent payer"},
		{name: "future dated", last: daysAgo(-3), wantLevel: LevelLow, wantReason: "Recent payer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			level, reason := Classify(tc.last, now, thresholds)
			if level != tc.wantLevel || reason != tc.wantReason {
				t.Fatalf("expected %s %q, got %s %q", tc.wantLevel, tc.wantReason, level, reason)
			}
		})
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	now := time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -45)
	level, reason := Classify(&last, now, config.RiskConfig{HighAfterDays: 60, MediumAfterDays: 30})
	if level != LevelMedium || reason != "No payments in >30 days" {
		t.Fatalf("expected Medium >30 days, got %s %q", level, reason)
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, ok := ParseLevel("high"); !ok || lvl != LevelHigh {
		t.Fatalf("expected High, got %s %v", lvl, ok)
	}
	if _, ok := ParseLevel("critical"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}
