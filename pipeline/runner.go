// Package pipeline orchestrates the periodic cycle: fetch listings,
// archive and persist the snapshot, analyze it, then deliver the
// report. Each cycle is independent; a failed cycle never stops the
// runner.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cryptopulse/logger"
	"cryptopulse/models"
)

// Fetcher pulls the current market snapshot from the provider.
type Fetcher interface {
	Fetch(ctx context.Context, topN int) ([]models.AssetSnapshot, error)
}

// Store persists snapshots and analysis rows and serves them back.
type Store interface {
	Append(ctx context.Context, snapshots []models.AssetSnapshot) error
	RecordAnalysis(ctx context.Context, results []models.AnalysisResult) error
}

// Archiver writes the raw cycle snapshot to durable archive storage.
type Archiver interface {
	Archive(ctx context.Context, snapshots []models.AssetSnapshot) (string, error)
}

// Analyzer derives the cycle's metric rows from a snapshot.
type Analyzer interface {
	Analyze(snapshot []models.AssetSnapshot) []models.AnalysisResult
}

// Reporter renders the snapshot and analysis into deliverable output.
// Alerts are rendered separately from the report so they can be sent as
// their own message.
type Reporter interface {
	BuildReport(snapshot []models.AssetSnapshot, results []models.AnalysisResult, at time.Time) string
	RenderChart(snapshot []models.AssetSnapshot, results []models.AnalysisResult) ([]byte, error)
	Alerts(snapshot []models.AssetSnapshot) string
}

// Notifier delivers the rendered report.
type Notifier interface {
	SendReport(ctx context.Context, text string, chart []byte) error
}

// Runner drives the fetch-store-analyze-notify loop on a fixed
// interval, running the first cycle immediately on start.
type Runner struct {
	fetcher  Fetcher
	store    Store
	archiver Archiver
	analyzer Analyzer
	reporter Reporter
	notifier Notifier

	topN     int
	interval time.Duration
	clock    Clock

	ctx     context.Context
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

// NewRunner wires the cycle components together.
func NewRunner(fetcher Fetcher, store Store, archiver Archiver, analyzer Analyzer, reporter Reporter, notifier Notifier, topN int, interval time.Duration, clock Clock) *Runner {
	if clock == nil {
		clock = NewClock()
	}
	return &Runner{
		fetcher:  fetcher,
		store:    store,
		archiver: archiver,
		analyzer: analyzer,
		reporter: reporter,
		notifier: notifier,
		topN:     topN,
		interval: interval,
		clock:    clock,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
	}
}

func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("runner already running")
	}
	r.running = true
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	log := r.log.WithComponent("runner").WithFields(logger.Fields{"operation": "start"})
	log.WithFields(logger.Fields{
		"interval": r.interval.String(),
		"top_n":    r.topN,
	}).Info("starting runner")

	r.wg.Add(1)
	go r.loop()

	log.Info("runner started successfully")
	return nil
}

func (r *Runner) Stop() {
	r.mu.Lock()
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	r.log.WithComponent("runner").Info("stopping runner")
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
	r.log.WithComponent("runner").Info("runner stopped")
}

func (r *Runner) loop() {
	defer r.wg.Done()

	// First cycle runs immediately; later cycles follow the interval.
	r.RunCycle(r.ctx)

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.clock.After(r.interval):
			r.RunCycle(r.ctx)
		}
	}
}

// RunCycle executes one full cycle. Fetch and storage failures abandon
// the cycle; archive and delivery failures are logged and the cycle
// still counts as completed.
func (r *Runner) RunCycle(ctx context.Context) {
	log := r.log.WithComponent("runner").WithFields(logger.Fields{"operation": "cycle"})
	started := r.clock.Now()

	snapshot, err := r.fetcher.Fetch(ctx, r.topN)
	if err != nil {
		log.WithError(err).Error("fetch failed, abandoning cycle")
		r.log.LogMetric("runner", "cycle_failures", 1, logger.Fields{"stage": "fetch"})
		return
	}
	if len(snapshot) == 0 {
		log.Warn("provider returned empty snapshot, nothing to persist")
		return
	}

	if r.archiver != nil {
		if _, err := r.archiver.Archive(ctx, snapshot); err != nil {
			log.WithError(err).Warn("archive failed, continuing cycle")
		}
	}

	if err := r.store.Append(ctx, snapshot); err != nil {
		log.WithError(err).Error("snapshot persist failed, abandoning cycle")
		r.log.LogMetric("runner", "cycle_failures", 1, logger.Fields{"stage": "append"})
		return
	}

	results := r.analyzer.Analyze(snapshot)
	if err := r.store.RecordAnalysis(ctx, results); err != nil {
		log.WithError(err).Error("analysis persist failed, abandoning cycle")
		r.log.LogMetric("runner", "cycle_failures", 1, logger.Fields{"stage": "record"})
		return
	}

	if r.notifier != nil && r.reporter != nil {
		// Alerts go out first as their own message so a long report
		// cannot bury them.
		if alerts := r.reporter.Alerts(snapshot); alerts != "" {
			if err := r.notifier.SendReport(ctx, alerts, nil); err != nil {
				log.WithError(err).Warn("alert delivery failed")
			}
		}

		text := r.reporter.BuildReport(snapshot, results, snapshot[0].FetchedAt)
		chart, err := r.reporter.RenderChart(snapshot, results)
		if err != nil {
			log.WithError(err).Warn("chart rendering failed, sending text only")
			chart = nil
		}
		if err := r.notifier.SendReport(ctx, text, chart); err != nil {
			log.WithError(err).Warn("report delivery failed")
		}
	}

	duration := r.clock.Now().Sub(started)
	log.WithFields(logger.Fields{
		"assets":      len(snapshot),
		"results":     len(results),
		"duration_ms": duration.Milliseconds(),
	}).Info("cycle completed")
	log.LogMetric("runner", "cycle_duration_ms", float64(duration.Milliseconds()), logger.Fields{})
	log.LogMetric("runner", "cycle_assets", float64(len(snapshot)), logger.Fields{})
}
