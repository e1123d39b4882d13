package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jonathanvineet/x-scrapper/internal/collector"
	"github.com/jonathanvineet/x-scrapper/internal/config"
	"github.com/jonathanvineet/x-scrapper/internal/logging"
	"github.com/jonathanvineet/x-scrapper/internal/model"
	"github.com/jonathanvineet/x-scrapper/internal/monitor"
	"github.com/jonathanvineet/x-scrapper/internal/ratelimit"
	"github.com/jonathanvineet/x-scrapper/internal/sentiment"
	"github.com/jonathanvineet/x-scrapper/internal/store"
	"github.com/jonathanvineet/x-scrapper/internal/trends"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("xscrapper")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting X-Scrapper (crypto intelligence collector)")

	cfg := config.LoadConfig()

	// Open post store
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open post store")
	}
	defer func() { _ = db.Close() }()
	logger.WithField("path", cfg.DatabasePath).Info("Post store ready")

	// API collector (optional, requires bearer token)
	var apiCollector collector.Collector
	if cfg.UseAPI {
		if cfg.BearerToken == "" {
			logger.Warn("USE_API set without X_BEARER_TOKEN - API collection disabled")
		} else {
			limiter := ratelimit.New(cfg.RateLimitCalls, cfg.RateLimitWindow)
			backend := collector.NewHTTPBackend(&http.Client{Timeout: 30 * time.Second}, "", cfg.BearerToken)
			c, err := collector.NewAPICollector(collector.APICollectorConfig{
				Backend:   backend,
				Limiter:   limiter,
				Logger:    logger,
				PageDelay: cfg.InterPageDelay,
			})
			if err != nil {
				logger.WithError(err).Warn("Failed to create API collector - API collection disabled")
			} else {
				apiCollector = c
				defer c.Close()
			}
		}
	}

	// Browser collector (optional, drives headless Chromium against mirrors)
	var browserCollector collector.Collector
	if cfg.UseBrowser {
		session, err := collector.NewRodSession(cfg.Headless)
		if err != nil {
			logger.WithError(err).Warn("Failed to launch browser - mirror collection disabled")
		} else {
			c, err := collector.NewMirrorCollector(collector.MirrorCollectorConfig{
				Session:     session,
				Mirrors:     cfg.MirrorURLs,
				Logger:      logger,
				ScrollPause: cfg.ScrollPause,
			})
			if err != nil {
				logger.WithError(err).Warn("Failed to create mirror collector - mirror collection disabled")
				session.Close()
			} else {
				browserCollector = c
				defer c.Close()
			}
		}
	}

	if apiCollector == nil && browserCollector == nil {
		logger.Fatal("No collection path available: enable USE_API with X_BEARER_TOKEN or USE_BROWSER")
	}

	aggregator := trends.NewAggregator(trends.AggregatorConfig{
		Store:              db,
		TrackedKeywords:    config.TrackedKeywords,
		HighEngagement:     cfg.HighEngagement,
		SentimentThreshold: cfg.SentimentAlert,
		Logger:             logger,
	})

	orchestrator := monitor.NewOrchestrator(monitor.OrchestratorConfig{
		API:           apiCollector,
		Browser:       browserCollector,
		Scorer:        sentiment.NewScorer(sentiment.DefaultLexicon()),
		Store:         db,
		Aggregator:    aggregator,
		Logger:        logger,
		Interval:      cfg.MonitoringInterval,
		WindowHours:   cfg.ReportWindowHours,
		ReportDir:     cfg.ExportDirectory,
		MaxPerAccount: cfg.MaxTweetsPerAccount,
		MaxPerKeyword: cfg.MaxTweetsPerKeyword,
	})

	targets := buildTargets(cfg)
	logger.WithFields(logging.Fields{
		"targets":  len(targets),
		"interval": cfg.MonitoringInterval.String(),
	}).Info("Monitoring configured")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orchestrator.Start(ctx, targets)
	defer orchestrator.Stop()

	// Health and metrics endpoints
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "xscrapper"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Shutdown complete")
}

// buildTargets assembles the collection worklist: monitored accounts from
// the selected categories followed by the configured search keywords.
func buildTargets(cfg config.Config) []model.Target {
	accounts := config.AccountsForCategories(cfg.AccountCategories)
	targets := make([]model.Target, 0, len(accounts)+len(cfg.SearchKeywords))
	for _, account := range accounts {
		targets = append(targets, model.AccountTarget(account))
	}
	for _, keyword := range cfg.SearchKeywords {
		targets = append(targets, model.KeywordTarget(keyword))
	}
	return targets
}
