// Package monitor implements the Monitor Scheduler (§4.13): a
// ticker-driven loop that sweeps active Monitor Targets, re-crawls the due
// ones with bounded concurrency, and feeds successful crawls into the
// Ingestion Pipeline. Bounded concurrency follows the same
// golang.org/x/sync/semaphore pattern the Embedding Gateway (C2) already
// uses to cap in-flight provider calls.
package monitor

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"university-query-engine/internal/apperr"
	"university-query-engine/internal/config"
	"university-query-engine/internal/domain"
	"university-query-engine/internal/ingestion"
	"university-query-engine/internal/web"
)

const component = "monitor"

// Store is the persistence port the scheduler needs: list active targets
// and apply a compare-and-set update after each crawl attempt, satisfied
// directly by *docstore.Store.
type Store interface {
	ListActiveMonitorTargets(ctx context.Context) ([]domain.MonitorTarget, error)
	CompareAndSwapMonitorTarget(ctx context.Context, update domain.MonitorTarget, expectedFailures int) (bool, error)
}

// Ingestor is the Ingestion Pipeline port a successful crawl feeds,
// satisfied by *ingestion.Pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, payload ingestion.Payload) (domain.PendingUpdate, error)
}

// Scheduler runs the periodic re-crawl loop.
type Scheduler struct {
	Store     Store
	Crawler   web.Crawler
	Ingestion Ingestor
	Config    config.MonitorConfig
	sem       *semaphore.Weighted

	// OnError, if set, is called with every per-target crawl/ingest error;
	// intended for logging, never for control flow.
	OnError func(target domain.MonitorTarget, err error)
}

// New builds a Scheduler from its collaborators.
func New(store Store, crawler web.Crawler, pipe Ingestor, cfg config.MonitorConfig) *Scheduler {
	maxConcurrent := cfg.MaxConcurrentCrawls
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Scheduler{
		Store:     store,
		Crawler:   crawler,
		Ingestion: pipe,
		Config:    cfg,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Run blocks, ticking every PollIntervalSeconds (default 300) until ctx is
// cancelled. Each tick runs Tick once; a tick that is still running when
// the next one fires is skipped (non-overlapping ticks, §5).
func (s *Scheduler) Run(ctx context.Context) {
	interval := time.Duration(s.Config.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 300 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick fetches all active targets and processes the due ones concurrently,
// bounded by the configured semaphore. It blocks until every target
// spawned this tick has finished, so two ticks never overlap when driven
// by Run.
func (s *Scheduler) Tick(ctx context.Context) {
	targets, err := s.Store.ListActiveMonitorTargets(ctx)
	if err != nil {
		s.reportError(domain.MonitorTarget{}, err)
		return
	}

	now := time.Now()
	done := make(chan struct{})
	pending := 0
	for _, t := range targets {
		if !t.IsDue(now) {
			continue
		}
		if err := s.sem.Acquire(ctx, 1); err != nil {
			break
		}
		pending++
		go func(target domain.MonitorTarget) {
			defer s.sem.Release(1)
			defer func() { done <- struct{}{} }()
			s.processTarget(ctx, target)
		}(t)
	}
	for i := 0; i < pending; i++ {
		<-done
	}
}

// processTarget crawls one target and applies the resulting state
// transition via compare-and-set. A CAS miss (another concurrent update) is
// not retried: this tick's write is skipped and a Conflict error is reported
// through OnError; the next tick picks the target back up regardless.
func (s *Scheduler) processTarget(ctx context.Context, target domain.MonitorTarget) {
	timeout := time.Duration(s.crawlTimeoutSeconds()) * time.Second
	crawlCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, crawlErr := s.Crawler.Fetch(crawlCtx, target.URL)
	now := time.Now()

	update := target
	update.LastCheckedAt = &now

	if crawlErr != nil {
		update.ConsecutiveFailures++
		update.LastError = crawlErr.Error()
		maxFailures := target.MaxFailures
		if maxFailures <= 0 {
			maxFailures = s.Config.DefaultMaxFailures
		}
		if maxFailures > 0 && update.ConsecutiveFailures >= maxFailures {
			update.IsActive = false
		}
		s.applyCAS(ctx, target, update)
		s.reportError(target, apperr.Wrap(apperr.DependencyUnavailable, component, crawlErr))
		return
	}

	update.LastSuccessAt = &now
	update.ConsecutiveFailures = 0
	update.LastContentHash = ingestion.ContentHash(page.Markdown)
	s.applyCAS(ctx, target, update)

	_, err := s.Ingestion.Ingest(ctx, ingestion.Payload{
		SourceID:   target.ID,
		Title:      page.Title,
		Content:    page.Markdown,
		SourceURL:  target.URL,
		Collection: target.Collection,
		Category:   target.Category,
		Metadata:   target.Metadata,
	})
	if err != nil {
		s.reportError(target, err)
	}
}

func (s *Scheduler) applyCAS(ctx context.Context, original, update domain.MonitorTarget) {
	ok, err := s.Store.CompareAndSwapMonitorTarget(ctx, update, original.ConsecutiveFailures)
	if err != nil {
		s.reportError(original, err)
		return
	}
	if !ok {
		s.reportError(original, apperr.Newf(apperr.Conflict, component, "monitor target %q changed concurrently, skipping this tick's write", original.ID))
	}
}

func (s *Scheduler) crawlTimeoutSeconds() int {
	if s.Config.PollIntervalSeconds > 0 && s.Config.PollIntervalSeconds < 20 {
		return s.Config.PollIntervalSeconds
	}
	return 20
}

func (s *Scheduler) reportError(target domain.MonitorTarget, err error) {
	if s.OnError != nil {
		s.OnError(target, err)
	}
}
