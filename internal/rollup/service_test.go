package rollup

import (
	"context"
	"errors"
	"testing"
	"time"

	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
	"github.com/smallbiznis/telcopulse/internal/source/sourcetest"
	"github.com/smallbiznis/telcopulse/pkg/db"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var refreshedAt = time.Date(2024, time.June, 30, 2, 0, 0, 0, time.UTC)

func setupRollupDB(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&MonthlyRevenueFact{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn, NewService(Params{DB: conn, Log: zaptest.NewLogger(t)})
}

func samplePayments() []sourcedomain.Payment {
	return []sourcedomain.Payment{
		sourcetest.Payment("PAY1", "C1", "P1", "100.25", "Success", sourcetest.Date(2024, time.January, 3)),
		sourcetest.Payment("PAY2", "C2", "P1", "50", "Failed", sourcetest.Date(2024, time.January, 31)),
		sourcetest.Payment("PAY3", "C1", "P1", "20", "Failed", sourcetest.Date(2024, time.February, 14)),
		sourcetest.Payment("PAY4", "C2", "P1", "10.75", "success", sourcetest.Date(2024, time.March, 1)),
		sourcetest.Payment("PAY5", "C2", "P1", "1", "Success", nil),
	}
}

func TestBuildMonthlyRevenueCompleteness(t *testing.T) {
	facts := BuildMonthlyRevenue(samplePayments(), refreshedAt)
	if len(facts) != 3 {
		t.Fatalf("expected 3 months, got %d", len(facts))
	}

	want := []struct {
		month   string
		revenue string
		count   int
	}{
		{"2024-01", "100.25", 1},
		{"2024-02", "0", 0},
		{"2024-03", "10.75", 1},
	}
	for i, w := range want {
		got := facts[i]
		if got.YearMonth != w.month || got.TotalRevenue.String() != w.revenue || got.SuccessfulTransactionCount != w.count {
			t.Fatalf("month %d: expected %+v, got %s/%s/%d", i, w, got.YearMonth, got.TotalRevenue, got.SuccessfulTransactionCount)
		}
		if !got.UpdatedAt.Equal(refreshedAt) {
			t.Fatalf("expected updated_at %s, got %s", refreshedAt, got.UpdatedAt)
		}
	}
}

func TestBuildMonthlyRevenueUsesUTCMonth(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	local := time.Date(2024, time.February, 1, 3, 0, 0, 0, jakarta)
	facts := BuildMonthlyRevenue([]sourcedomain.Payment{
		sourcetest.Payment("PAY1", "C1", "P1", "1", "Success", &local),
	}, refreshedAt)
	if len(facts) != 1 || facts[0].YearMonth != "2024-01" {
		t.Fatalf("expected 2024-01, got %+v", facts)
	}
}

func TestRefreshMonthlyRevenueIsIdempotent(t *testing.T) {
	_, svc := setupRollupDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.RefreshMonthlyRevenue(ctx, samplePayments(), refreshedAt); err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}
	rows, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows after repeated refresh, got %d", len(rows))
	}
	if rows[0].TotalRevenue.String() != "100.25" {
		t.Fatalf("expected 100.25, got %s", rows[0].TotalRevenue)
	}
}

func TestRefreshMonthlyRevenueDropsStaleMonths(t *testing.T) {
	_, svc := setupRollupDB(t)
	ctx := context.Background()

	if _, err := svc.RefreshMonthlyRevenue(ctx, samplePayments(), refreshedAt); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := svc.RefreshMonthlyRevenue(ctx, samplePayments()[:1], refreshedAt); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	rows, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].YearMonth != "2024-01" {
		t.Fatalf("expected only 2024-01, got %+v", rows)
	}
}

func TestRefreshMonthlyRevenueRollsBackOnWriteFailure(t *testing.T) {
	conn, svc := setupRollupDB(t)
	ctx := context.Background()

	if _, err := svc.RefreshMonthlyRevenue(ctx, samplePayments(), refreshedAt); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	boom := errors.New("disk full")
	if err := conn.Callback().Create().Before("gorm:create").Register("test:fail_insert", func(tx *gorm.DB) {
		_ = tx.AddError(boom)
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}

	_, err := svc.RefreshMonthlyRevenue(ctx, samplePayments()[:1], refreshedAt.Add(time.Hour))
	if !errors.Is(err, boom) {
		t.Fatalf("expected write failure, got %v", err)
	}

	rows, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected previous 3 rows intact, got %d", len(rows))
	}
	for _, r := range rows {
		if !r.UpdatedAt.Equal(refreshedAt) {
			t.Fatalf("expected untouched rows, got updated_at %s", r.UpdatedAt)
		}
	}
}

func TestRefreshMonthlyRevenueRollsBackOnCancel(t *testing.T) {
	conn, svc := setupRollupDB(t)

	if _, err := svc.RefreshMonthlyRevenue(context.Background(), samplePayments(), refreshedAt); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := conn.Callback().Create().Before("gorm:create").Register("test:cancel_mid_replace", func(*gorm.DB) {
		cancel()
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}

	if _, err := svc.RefreshMonthlyRevenue(ctx, samplePayments()[:1], refreshedAt.Add(time.Hour)); err == nil {
		t.Fatalf("expected cancellation error")
	}

	rows, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected pre-run contents, got %d rows", len(rows))
	}
}
