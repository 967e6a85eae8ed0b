package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/telcopulse/internal/aggregate"
	"github.com/smallbiznis/telcopulse/internal/config"
	"github.com/smallbiznis/telcopulse/internal/insight"
	"github.com/smallbiznis/telcopulse/internal/observability"
	obsmiddleware "github.com/smallbiznis/telcopulse/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/telcopulse/internal/observability/metrics"
	obstracing "github.com/smallbiznis/telcopulse/internal/observability/tracing"
	"github.com/smallbiznis/telcopulse/internal/ratelimit"
	"github.com/smallbiznis/telcopulse/internal/refresh"
	"github.com/smallbiznis/telcopulse/internal/risk"
	"github.com/smallbiznis/telcopulse/internal/rollup"
	"github.com/smallbiznis/telcopulse/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Provide(provideRefresher, provideReader, provideLimiter),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// Refresher triggers a pipeline run.
type Refresher interface {
	Run(ctx context.Context, opts ...refresh.RunOption) (refresh.RunResult, error)
	State() refresh.State
}

// Reader serves derived artifacts and the run ledger.
type Reader interface {
	CustomerOverview(ctx context.Context) ([]aggregate.CustomerOverview, error)
	CustomerValues(ctx context.Context) ([]aggregate.CustomerValue, error)
	PlanPerformance(ctx context.Context) ([]aggregate.PlanPerformance, error)
	PlanTypeARPU(ctx context.Context) ([]aggregate.PlanTypeARPU, error)
	MobileSubscriptions(ctx context.Context) ([]aggregate.MobileSubscription, error)
	FiberSubscriptions(ctx context.Context) ([]aggregate.FiberSubscription, error)
	MonthlyRevenue(ctx context.Context) ([]rollup.MonthlyRevenueFact, error)
	CustomerRisk(ctx context.Context, level string) ([]risk.CustomerRiskFlag, error)
	ListRuns(ctx context.Context, page pagination.Pagination) ([]refresh.Run, pagination.PageInfo, error)
	GetRun(ctx context.Context, id string) (*refresh.Run, error)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func provideRefresher(o *refresh.Orchestrator) Refresher { return o }

func provideReader(s *insight.Service) Reader { return s }

func provideLimiter(l *ratelimit.TriggerLimiter) ratelimit.Limiter {
	if !l.Enabled() {
		return nil
	}
	return l
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	log       *zap.Logger
	refresher Refresher
	reader    Reader
	limiter   ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Log       *zap.Logger
	Refresher Refresher
	Reader    Reader
	Limiter   ratelimit.Limiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		log:       p.Log.Named("http"),
		refresher: p.Refresher,
		reader:    p.Reader,
		limiter:   p.Limiter,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Customers --------
	v1.GET("/customers/overview", s.ListCustomerOverview)
	v1.GET("/customers/value", s.ListCustomerValues)
	v1.GET("/customers/risk", s.ListCustomerRisk)

	// -------- Plans --------
	v1.GET("/plans/performance", s.ListPlanPerformance)
	v1.GET("/plans/arpu", s.ListPlanTypeARPU)

	// -------- Subscriptions --------
	v1.GET("/subscriptions/mobile", s.ListMobileSubscriptions)
	v1.GET("/subscriptions/fiber", s.ListFiberSubscriptions)

	// -------- Revenue --------
	v1.GET("/revenue/monthly", s.ListMonthlyRevenue)

	// -------- Refresh --------
	v1.POST("/refresh", s.limitTriggers(), s.TriggerRefresh)
	v1.GET("/refresh/state", s.GetRefreshState)
	v1.GET("/refresh/runs", s.ListRefreshRuns)
	v1.GET("/refresh/runs/:id", s.GetRefreshRun)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
