// Package monitor drives collection cycles: collectors feed the
// normalizer, scorer, deduplicator, and store, and each completed cycle
// triggers a trend report.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathanvineet/x-scrapper/internal/collector"
	"github.com/jonathanvineet/x-scrapper/internal/dedup"
	"github.com/jonathanvineet/x-scrapper/internal/logging"
	"github.com/jonathanvineet/x-scrapper/internal/model"
	"github.com/jonathanvineet/x-scrapper/internal/normalize"
	"github.com/jonathanvineet/x-scrapper/internal/sentiment"
	"github.com/jonathanvineet/x-scrapper/internal/store"
	"github.com/jonathanvineet/x-scrapper/internal/trends"
)

// ErrNoCollector distinguishes "could not even attempt collection" from
// "attempted and found nothing".
var ErrNoCollector = errors.New("no collector configured")

const defaultInterval = 5 * time.Minute

// OrchestratorConfig wires an Orchestrator. API and Browser are both
// optional, but at least one must be set for collection to run.
type OrchestratorConfig struct {
	API           collector.Collector
	Browser       collector.Collector
	Scorer        *sentiment.Scorer
	Store         *store.Store
	Aggregator    *trends.Aggregator
	Logger        logging.Logger
	Interval      time.Duration
	WindowHours   int
	ReportDir     string
	MaxPerAccount int
	MaxPerKeyword int
}

// Orchestrator owns one store connection and at most one collection
// cycle at a time. Continuous monitoring runs the cycle loop on a
// background goroutine; Stop cancels it cooperatively.
type Orchestrator struct {
	api           collector.Collector
	browser       collector.Collector
	scorer        *sentiment.Scorer
	store         *store.Store
	aggregator    *trends.Aggregator
	logger        logging.Logger
	interval      time.Duration
	windowHours   int
	reportDir     string
	maxPerAccount int
	maxPerKeyword int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator builds an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	windowHours := cfg.WindowHours
	if windowHours <= 0 {
		windowHours = 24
	}
	maxPerAccount := cfg.MaxPerAccount
	if maxPerAccount <= 0 {
		maxPerAccount = 50
	}
	maxPerKeyword := cfg.MaxPerKeyword
	if maxPerKeyword <= 0 {
		maxPerKeyword = 100
	}
	return &Orchestrator{
		api:           cfg.API,
		browser:       cfg.Browser,
		scorer:        cfg.Scorer,
		store:         cfg.Store,
		aggregator:    cfg.Aggregator,
		logger:        cfg.Logger,
		interval:      interval,
		windowHours:   windowHours,
		reportDir:     cfg.ReportDir,
		maxPerAccount: maxPerAccount,
		maxPerKeyword: maxPerKeyword,
	}
}

// CycleStats summarizes one completed collection cycle.
type CycleStats struct {
	RunID      string
	Targets    int
	Collected  int
	Stored     int
	ReportPath string
	ExportPath string
}

// CollectTarget gathers one target: API first when configured, browser
// mirror to top up when the API under-delivers. Every normalized record
// is written through the store's upsert, so a later record repeating an
// id overwrites the earlier row. The returned batch is deduplicated to
// first occurrences only.
func (o *Orchestrator) CollectTarget(ctx context.Context, target model.Target, seen *dedup.Set) ([]model.Post, error) {
	if o.api == nil && o.browser == nil {
		return nil, ErrNoCollector
	}

	maxResults := o.maxPerAccount
	if target.Kind == model.TargetKeyword {
		maxResults = o.maxPerKeyword
	}

	var raw []collector.RawRecord
	if o.api != nil {
		result, err := o.fetch(ctx, o.api, target, maxResults)
		if err != nil {
			o.logger.WithError(err).WithField("target", target.Value).Warn("API collection failed")
		}
		raw = append(raw, result.Records...)
	}
	if len(raw) < maxResults && o.browser != nil {
		result, err := o.fetch(ctx, o.browser, target, maxResults-len(raw))
		if err != nil {
			o.logger.WithError(err).WithField("target", target.Value).Warn("Browser collection failed")
		}
		raw = append(raw, result.Records...)
		if result.Exhausted {
			o.logger.WithField("target", target.Value).Warn("All mirrors exhausted for target")
		}
	}

	scrapedAt := time.Now()
	posts := make([]model.Post, 0, len(raw))
	for _, rec := range raw {
		post := normalize.Record(rec, scrapedAt)
		post.Sentiment = o.scorer.Score(post.Text)
		posts = append(posts, post)
	}
	persisted := make([]model.Post, 0, len(posts))
	for _, post := range posts {
		if err := o.store.Upsert(ctx, post); err != nil {
			storeFailures.Inc()
			o.logger.WithError(err).WithField("post_id", post.ID).Warn("Dropping post, store write failed")
			continue
		}
		postsStored.Inc()
		persisted = append(persisted, post)
	}
	return seen.Filter(persisted), nil
}

func (o *Orchestrator) fetch(ctx context.Context, c collector.Collector, target model.Target, maxResults int) (collector.Result, error) {
	if target.Kind == model.TargetKeyword {
		return c.FetchSearch(ctx, target.Value, maxResults)
	}
	return c.FetchTimeline(ctx, target.Value, maxResults, target.KeywordFilter)
}

// exportFilename builds the timestamped raw-post export name inside dir.
func exportFilename(dir string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("posts_export_%s.json", at.Format("20060102_150405")))
}

// RunCycle collects every target once, then builds and writes the trend
// report. Per-target failures are logged and skipped; only a completely
// unconfigured orchestrator aborts the cycle.
func (o *Orchestrator) RunCycle(ctx context.Context, targets []model.Target) (CycleStats, error) {
	start := time.Now()
	defer func() {
		cycleDuration.Observe(time.Since(start).Seconds())
	}()

	stats := CycleStats{RunID: uuid.NewString(), Targets: len(targets)}
	log := o.logger.WithField("run_id", stats.RunID)
	seen := dedup.New()

	for _, target := range targets {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		posts, err := o.CollectTarget(ctx, target, seen)
		if err != nil {
			if errors.Is(err, ErrNoCollector) {
				return stats, err
			}
			log.WithError(err).WithField("target", target.Value).Warn("Target collection failed, continuing")
			continue
		}
		stats.Collected += len(posts)
		stats.Stored += len(posts)
		log.WithFields(logging.Fields{
			"target": target.Value,
			"kind":   string(target.Kind),
			"posts":  len(posts),
		}).Info("Target collected")
	}

	if o.aggregator != nil && o.reportDir != "" {
		report, err := o.aggregator.BuildReport(ctx, o.windowHours)
		if err != nil {
			log.WithError(err).Warn("Report generation failed")
		} else {
			path := trends.ReportFilename(o.reportDir, report.GeneratedAt)
			if err := trends.WriteReport(report, path); err != nil {
				log.WithError(err).Warn("Report write failed")
			} else {
				stats.ReportPath = path
			}
		}
	}

	if o.reportDir != "" {
		exportPath := exportFilename(o.reportDir, time.Now().UTC())
		n, err := o.store.ExportJSON(ctx, exportPath, o.windowHours)
		if err != nil {
			log.WithError(err).Warn("Post export failed")
		} else {
			stats.ExportPath = exportPath
			log.WithFields(logging.Fields{"posts": n, "path": exportPath}).Info("Posts exported")
		}
	}

	log.WithFields(logging.Fields{
		"targets":  stats.Targets,
		"stored":   stats.Stored,
		"duration": time.Since(start).String(),
	}).Info("Collection cycle complete")
	return stats, nil
}

// Start launches continuous monitoring on a background goroutine,
// repeating cycles at the configured interval. Cancellation is
// cooperative: the loop checks the context between targets and before
// each inter-cycle sleep.
func (o *Orchestrator) Start(ctx context.Context, targets []model.Target) {
	ctx, o.cancel = context.WithCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(ctx, targets)
	}()
}

// Stop signals the monitoring loop and waits for it to exit.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, targets []model.Target) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithField("panic", fmt.Sprint(r)).Error("Monitoring loop panic")
		}
	}()

	for {
		cycleStart := time.Now()
		if _, err := o.RunCycle(ctx, targets); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			o.logger.WithError(err).Warn("Collection cycle aborted")
			if errors.Is(err, ErrNoCollector) {
				return
			}
		}

		wait := o.interval - time.Since(cycleStart)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
