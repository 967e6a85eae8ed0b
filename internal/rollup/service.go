package rollup

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
	"github.com/smallbiznis/telcopulse/pkg/db/option"
	"github.com/smallbiznis/telcopulse/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	repo repository.Repository[MonthlyRevenueFact]
	log  *zap.Logger
}

func NewService(p Params) *Service {
	return &Service{
		repo: repository.ProvideStore[MonthlyRevenueFact](p.DB),
		log:  p.Log.Named("rollup.monthly_revenue"),
	}
}

// BuildMonthlyRevenue groups payments by the UTC calendar month of
// payment_date. Every month with at least one payment gets a row; only
// successful payments add to revenue and count. Undated payments cannot be
// keyed and are skipped.
func BuildMonthlyRevenue(payments []sourcedomain.Payment, now time.Time) []MonthlyRevenueFact {
	byMonth := map[string]*MonthlyRevenueFact{}
	for _, p := range payments {
		if p.PaymentDate == nil {
			continue
		}
		key := p.PaymentDate.UTC().Format(YearMonthLayout)
		fact, ok := byMonth[key]
		if !ok {
			fact = &MonthlyRevenueFact{YearMonth: key, TotalRevenue: decimal.Zero, UpdatedAt: now.UTC()}
			byMonth[key] = fact
		}
		if !p.IsSuccessful() {
			continue
		}
		fact.SuccessfulTransactionCount++
		fact.TotalRevenue = fact.TotalRevenue.Add(p.Amount())
	}

	out := make([]MonthlyRevenueFact, 0, len(byMonth))
	for _, fact := range byMonth {
		out = append(out, *fact)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YearMonth < out[j].YearMonth })
	return out
}

// RefreshMonthlyRevenue rebuilds monthly_revenue_facts from payments in one
// transaction. On any failure the previous table content is kept.
func (s *Service) RefreshMonthlyRevenue(ctx context.Context, payments []sourcedomain.Payment, now time.Time) (int, error) {
	facts := BuildMonthlyRevenue(payments, now)
	rows := make([]*MonthlyRevenueFact, len(facts))
	for i := range facts {
		rows[i] = &facts[i]
	}

	count, err := s.repo.ReplaceAll(ctx, rows)
	if err != nil {
		return 0, err
	}
	s.log.Info("monthly revenue replaced", zap.Int("row_count", count))
	return count, nil
}

// List returns the materialized facts ordered by month.
func (s *Service) List(ctx context.Context) ([]MonthlyRevenueFact, error) {
	rows, err := s.repo.Find(ctx, option.WithOrder("year_month ASC"))
	if err != nil {
		return nil, err
	}
	out := make([]MonthlyRevenueFact, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}
