package insight

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/telcopulse/internal/aggregate"
	"github.com/smallbiznis/telcopulse/internal/cache"
	"github.com/smallbiznis/telcopulse/internal/clock"
	"github.com/smallbiznis/telcopulse/internal/config"
	"github.com/smallbiznis/telcopulse/internal/refresh"
	"github.com/smallbiznis/telcopulse/internal/risk"
	"github.com/smallbiznis/telcopulse/internal/rollup"
	"github.com/smallbiznis/telcopulse/internal/source"
	sourcedomain "github.com/smallbiznis/telcopulse/internal/source/domain"
	"github.com/smallbiznis/telcopulse/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	viewsKey        = "views"
	viewLoadTimeout = time.Minute
)

var (
	ErrInvalidRunID     = errors.New("invalid_run_id")
	ErrInvalidRiskLevel = errors.New("invalid_risk_level")
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Source   sourcedomain.Accessor
	Rollup   *rollup.Service
	Risk     *risk.Service
	Runs     *refresh.RunStore
	Clock    clock.Clock
	Config   config.Config
	Pipeline refresh.Config `optional:"true"`
}

// Service serves derived artifacts. Views computed from the source tables
// are cached until the TTL lapses or a refresh invalidates them; the
// materialized tables are always read directly.
type Service struct {
	log      *zap.Logger
	source   sourcedomain.Accessor
	rollup   *rollup.Service
	risk     *risk.Service
	runs     *refresh.RunStore
	clock    clock.Clock
	pipeline string
	ttl      time.Duration

	views cache.Cache[string, aggregate.Result]
	group singleflight.Group
}

func NewService(p Params) *Service {
	pipeline := p.Pipeline.Pipeline
	if pipeline == "" {
		pipeline = p.Config.Refresh.Pipeline
	}
	return &Service{
		log:      p.Log.Named("insight"),
		source:   p.Source,
		rollup:   p.Rollup,
		risk:     p.Risk,
		runs:     p.Runs,
		clock:    p.Clock,
		pipeline: pipeline,
		ttl:      p.Config.InsightCacheTTL,
		views:    cache.NewTTLCacheWithClock[string, aggregate.Result](p.Clock),
	}
}

// Invalidate drops cached views so the next read recomputes them.
func (s *Service) Invalidate() {
	s.views.Purge()
	s.log.Debug("insight views invalidated")
}

func (s *Service) computed(ctx context.Context) (aggregate.Result, error) {
	if res, ok := s.views.Get(viewsKey); ok {
		return res, nil
	}
	// the shared load outlives any single caller; each caller still honors its own ctx
	ch := s.group.DoChan(viewsKey, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), viewLoadTimeout)
		defer cancel()

		snap, err := source.LoadSnapshot(loadCtx, s.source, s.clock.Now())
		if err != nil {
			return aggregate.Result{}, err
		}
		res, err := aggregate.Compute(loadCtx, snap)
		if err != nil {
			return aggregate.Result{}, err
		}
		s.views.Set(viewsKey, res, s.ttl)
		return res, nil
	})
	select {
	case <-ctx.Done():
		return aggregate.Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return aggregate.Result{}, r.Err
		}
		return r.Val.(aggregate.Result), nil
	}
}

func (s *Service) CustomerOverview(ctx context.Context) ([]aggregate.CustomerOverview, error) {
	res, err := s.computed(ctx)
	return res.Overview, err
}

func (s *Service) CustomerValues(ctx context.Context) ([]aggregate.CustomerValue, error) {
	res, err := s.computed(ctx)
	return res.CustomerValue, err
}

func (s *Service) PlanPerformance(ctx context.Context) ([]aggregate.PlanPerformance, error) {
	res, err := s.computed(ctx)
	return res.Plans, err
}

func (s *Service) PlanTypeARPU(ctx context.Context) ([]aggregate.PlanTypeARPU, error) {
	res, err := s.computed(ctx)
	return res.ARPU, err
}

func (s *Service) MobileSubscriptions(ctx context.Context) ([]aggregate.MobileSubscription, error) {
	res, err := s.computed(ctx)
	return res.Mobile, err
}

func (s *Service) FiberSubscriptions(ctx context.Context) ([]aggregate.FiberSubscription, error) {
	res, err := s.computed(ctx)
	return res.Fiber, err
}

func (s *Service) MonthlyRevenue(ctx context.Context) ([]rollup.MonthlyRevenueFact, error) {
	return s.rollup.List(ctx)
}

// CustomerRisk lists risk flags, optionally filtered by level name.
func (s *Service) CustomerRisk(ctx context.Context, level string) ([]risk.CustomerRiskFlag, error) {
	var filter risk.Level
	if level != "" {
		parsed, ok := risk.ParseLevel(level)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRiskLevel, level)
		}
		filter = parsed
	}
	return s.risk.List(ctx, filter)
}

// ListRuns pages through the run ledger newest first.
func (s *Service) ListRuns(ctx context.Context, page pagination.Pagination) ([]refresh.Run, pagination.PageInfo, error) {
	cursor, err := pagination.DecodeCursor(page.PageToken)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	var before snowflake.ID
	if cursor != nil {
		if before, err = snowflake.ParseString(cursor.ID); err != nil {
			return nil, pagination.PageInfo{}, pagination.ErrInvalidPageToken
		}
	}

	size := page.Size()
	rows, err := s.runs.List(ctx, s.pipeline, before, size+1)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	return pagination.BuildCursorPage(rows, size, func(r refresh.Run) string {
		return strconv.FormatInt(int64(r.ID), 10)
	})
}

func (s *Service) GetRun(ctx context.Context, id string) (*refresh.Run, error) {
	runID, err := snowflake.ParseString(id)
	if err != nil || runID <= 0 {
		return nil, ErrInvalidRunID
	}
	return s.runs.Get(ctx, runID)
}

// LatestRun returns the newest ledger row of the configured pipeline.
func (s *Service) LatestRun(ctx context.Context) (*refresh.Run, error) {
	return s.runs.Latest(ctx, s.pipeline)
}
