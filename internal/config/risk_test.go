package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidateRiskConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     RiskConfig
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultRiskConfig()},
		{name: "zero medium", cfg: RiskConfig{HighAfterDays: 10, MediumAfterDays: 0}, wantErr: true},
		{name: "inverted", cfg: RiskConfig{HighAfterDays: 30, MediumAfterDays: 60}, wantErr: true},
		{name: "equal", cfg: RiskConfig{HighAfterDays: 60, MediumAfterDays: 60}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateRiskConfig(tc.cfg)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error for %+v", tc.cfg)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewRiskConfigHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := "risk:\n  highAfterDays: 120\n  mediumAfterDays: 45\n"
	if err := os.WriteFile(filepath.Join(dir, "risk.yml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)

	holder, err := NewRiskConfigHolder()
	if err != nil {
		t.Fatalf("new holder: %v", err)
	}
	got := holder.Get()
	if got.HighAfterDays != 120 || got.MediumAfterDays != 45 {
		t.Fatalf("expected 120/45, got %d/%d", got.HighAfterDays, got.MediumAfterDays)
	}
}

func TestNewRiskConfigHolderDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewRiskConfigHolder()
	if err != nil {
		t.Fatalf("new holder: %v", err)
	}
	if got := holder.Get(); got != DefaultRiskConfig() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestLoadRefreshDurations(t *testing.T) {
	t.Setenv("REFRESH_SOURCE_TIMEOUT", "5s")
	t.Setenv("REFRESH_LOCK_WAIT", "not-a-duration")
	t.Setenv("REFRESH_NORMALIZE", "off")

	cfg := Load()
	if cfg.Refresh.SourceTimeout != 5*time.Second {
		t.Fatalf("expected source timeout 5s, got %s", cfg.Refresh.SourceTimeout)
	}
	if cfg.Refresh.LockWait != 10*time.Second {
		t.Fatalf("expected default lock wait, got %s", cfg.Refresh.LockWait)
	}
	if cfg.Refresh.Normalize {
		t.Fatalf("expected normalize disabled")
	}
}
