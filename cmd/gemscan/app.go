package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/alerts"
	"github.com/solgems/gemscan/internal/artifacts"
	"github.com/solgems/gemscan/internal/budget"
	"github.com/solgems/gemscan/internal/cache"
	"github.com/solgems/gemscan/internal/config"
	"github.com/solgems/gemscan/internal/discovery"
	"github.com/solgems/gemscan/internal/domain"
	"github.com/solgems/gemscan/internal/enrich"
	httpiface "github.com/solgems/gemscan/internal/interfaces/http"
	"github.com/solgems/gemscan/internal/metrics"
	"github.com/solgems/gemscan/internal/net/ratelimit"
	"github.com/solgems/gemscan/internal/persistence"
	"github.com/solgems/gemscan/internal/pipeline"
	"github.com/solgems/gemscan/internal/providers"
	"github.com/solgems/gemscan/internal/scoring"
	"github.com/solgems/gemscan/internal/sources"
)

// app bundles every wired component of one detector instance.
type app struct {
	cfg         *config.Config
	coordinator *pipeline.Coordinator
	dispatcher  *alerts.Dispatcher
	collector   *metrics.Collector
	server      *httpiface.Server
	writer      *artifacts.Writer
	stream      *sources.LiveLaunchStream
	registry    *persistence.AlertRegistry
	outputDir   string
}

// buildApp wires the full detector from configuration.
func buildApp(cfg *config.Config, outputDir string) (*app, error) {
	breaker := budget.NewBreaker(budget.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeoutDuration(),
	})
	ledger := budget.NewLedger()

	// Vendor clients behind per-vendor breakers and a shared rate limiter.
	breakers := providers.NewBreakerManager()
	for vendor, bc := range providers.DefaultBreakerConfigs() {
		breakers.Register(vendor, bc)
	}
	limiter := ratelimit.NewLimiter(cfg.Providers.RequestsPerSec, 1)

	birdeye := providers.NewBirdeyeClient(cfg.Providers.BirdeyeURL, cfg.Providers.BirdeyeAPIKey, limiter, breakers)
	moralis := providers.NewMoralisClient(cfg.Providers.MoralisURL, cfg.Providers.MoralisAPIKey, limiter, breakers)

	enricher := enrich.New(birdeye, moralis, birdeye, birdeye, breaker, ledger, enrich.Config{
		MaxOHLCVConcurrency: cfg.Batch.MaxOHLCVConcurrency,
	})

	// Discovery sources. The curve detector gets a redis-backed fallback when
	// a cache is configured.
	var curveCache *cache.CurveCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		curveCache = cache.NewCurveCache(client, time.Duration(cfg.Redis.CacheTTLMin)*time.Minute)
	}

	stream := sources.NewLiveLaunchStream(cfg.Sources.LaunchStream)
	detector := sources.NewCurveDetector(cfg.Sources.SolanaRPCURL, cfg.Sources.CurveProgram,
		sources.AnalysisMode(cfg.SolBonding.AnalysisMode), curveCache)

	srcs := []discovery.Source{
		sources.NewTrendingFeed(cfg.Sources.TrendingURL),
		sources.NewGraduatedFeed(cfg.Sources.GraduatedURL),
		sources.NewBondingFeed(cfg.Sources.BondingURL),
		detector,
		stream,
	}
	orchestrator := discovery.NewOrchestrator(srcs, discovery.Config{})
	if curveCache != nil {
		orchestrator.SetFallback(detector.Name(), sources.NewCachedCurveSource(curveCache))
	}

	kernel := scoring.NewKernel(ledger)
	coordinator := pipeline.NewCoordinator(
		orchestrator,
		pipeline.NewTriage(ledger),
		pipeline.NewEnhancedFilter(enricher, ledger),
		pipeline.NewMarketValidator(breaker, ledger),
		pipeline.NewOHLCVAnalyzer(enricher, kernel, breaker, ledger),
		breaker,
		ledger,
	)

	// Alerting: postgres-backed dedupe when a DSN is configured.
	var registry *persistence.AlertRegistry
	var dedupe alerts.Registry
	if cfg.Alerts.PostgresDSN != "" {
		var err error
		registry, err = persistence.Open(cfg.Alerts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open alert registry: %w", err)
		}
		dedupe = registry
	} else {
		log.Warn().Msg("no postgres DSN configured, alert dedupe disabled")
	}
	dispatcher := alerts.NewDispatcher(
		cfg.Analysis.Scoring.EarlyGemHunting.HighConvictionThreshold,
		time.Duration(cfg.Alerts.DedupeWindowHours)*time.Hour,
		dedupe,
		alerts.LogEmitter{},
	)

	promRegistry := prometheus.NewRegistry()
	collector := metrics.NewCollector(promRegistry)
	server := httpiface.NewServer(promRegistry)

	return &app{
		cfg:         cfg,
		coordinator: coordinator,
		dispatcher:  dispatcher,
		collector:   collector,
		server:      server,
		writer:      artifacts.NewWriter(outputDir),
		stream:      stream,
		registry:    registry,
		outputDir:   outputDir,
	}, nil
}

// runCycle executes one cycle and handles every post-cycle concern: alerts,
// metrics, artifacts, monitor state.
func (a *app) runCycle(ctx context.Context) *domain.CycleReport {
	report := a.coordinator.RunCycle(ctx)

	sent := a.dispatcher.Dispatch(ctx, report)
	a.collector.ObserveCycle(report)
	a.collector.ObserveAlerts(sent)
	a.server.SetLastReport(report)

	if err := a.writer.WriteCycle(report); err != nil {
		log.Error().Err(err).Msg("failed to persist cycle artifact")
	}
	return report
}

// close releases long-lived resources.
func (a *app) close() {
	a.stream.Stop()
	if a.registry != nil {
		if err := a.registry.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close alert registry")
		}
	}
}
