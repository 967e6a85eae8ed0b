package risk

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/smallbiznis/telcopulse/internal/aggregate"
	"github.com/smallbiznis/telcopulse/internal/config"
	"github.com/smallbiznis/telcopulse/pkg/db/option"
	"github.com/smallbiznis/telcopulse/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Thresholds *config.RiskConfigHolder `optional:"true"`
}

type Service struct {
	repo       repository.Repository[CustomerRiskFlag]
	log        *zap.Logger
	thresholds *config.RiskConfigHolder
}

func NewService(p Params) *Service {
	return &Service{
		repo:       repository.ProvideStore[CustomerRiskFlag](p.DB),
		log:        p.Log.Named("risk"),
		thresholds: p.Thresholds,
	}
}

// BuildFlags classifies every customer value. updated_at is the refresh
// time, not the payment time.
func BuildFlags(values []aggregate.CustomerValue, now time.Time, thresholds config.RiskConfig) []CustomerRiskFlag {
	now = now.UTC()
	out := make([]CustomerRiskFlag, 0, len(values))
	for _, v := range values {
		level, reason := Classify(v.LastPaymentDate, now, thresholds)
		out = append(out, CustomerRiskFlag{
			CustomerID:      v.CustomerID,
			RiskLevel:       level,
			Reason:          reason,
			LastPaymentDate: v.LastPaymentDate,
			UpdatedAt:       now,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}

// RefreshCustomerRisk replaces customer_risk_flags in one transaction using
// the thresholds current at call time.
func (s *Service) RefreshCustomerRisk(ctx context.Context, values []aggregate.CustomerValue, now time.Time) (int, error) {
	flags := BuildFlags(values, now, s.thresholds.Get())
	rows := make([]*CustomerRiskFlag, len(flags))
	for i := range flags {
		rows[i] = &flags[i]
	}

	count, err := s.repo.ReplaceAll(ctx, rows)
	if err != nil {
		return 0, err
	}
	s.log.Info("customer risk replaced", zap.Int("row_count", count))
	return count, nil
}

// List returns materialized flags, optionally filtered by level.
func (s *Service) List(ctx context.Context, level Level) ([]CustomerRiskFlag, error) {
	opts := []option.QueryOption{option.WithOrder("customer_id ASC")}
	if level != "" {
		opts = append(opts, option.WithWhere("risk_level = ?", string(level)))
	}
	rows, err := s.repo.Find(ctx, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]CustomerRiskFlag, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

// ParseLevel accepts a level name in any case; empty input means no filter.
func ParseLevel(raw string) (Level, bool) {
	switch {
	case raw == "":
		return "", true
	case strings.EqualFold(raw, string(LevelLow)):
		return LevelLow, true
	case strings.EqualFold(raw, string(LevelMedium)):
		return LevelMedium, true
	case strings.EqualFold(raw, string(LevelHigh)):
		return LevelHigh, true
	}
	return "", false
}
