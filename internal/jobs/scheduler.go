// Package jobs owns the ingestion job lifecycle: launching crawl and upload
// drivers under a cross-job concurrency budget, the cancel registry, and
// stall recovery at startup.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"docdex/internal/config"
	"docdex/internal/crawler"
	"docdex/internal/ingest"
	"docdex/internal/model"
	"docdex/internal/progress"
	"docdex/internal/store"
)

// Scheduler launches drivers and tracks their cancel functions. The slot
// semaphore is the cross-job concurrency budget: a launched job waits for a
// slot before its driver runs.
type Scheduler struct {
	store    *store.Store
	cfg      *config.Config
	renderer crawler.Renderer
	pipeline *ingest.Pipeline
	fetcher  *ingest.RepoFetcher
	bus      *progress.Bus
	logger   *slog.Logger

	slots *semaphore.Weighted

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
}

// New builds the scheduler.
func New(st *store.Store, cfg *config.Config, renderer crawler.Renderer, pipeline *ingest.Pipeline, fetcher *ingest.RepoFetcher, bus *progress.Bus, logger *slog.Logger) *Scheduler {
	maxJobs := cfg.Worker.MaxConcurrentJobs
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &Scheduler{
		store:    st,
		cfg:      cfg,
		renderer: renderer,
		pipeline: pipeline,
		fetcher:  fetcher,
		bus:      bus,
		logger:   logger,
		slots:    semaphore.NewWeighted(int64(maxJobs)),
		cancels:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// StartCrawl launches the crawl driver for a created job. ctx bounds the
// whole run; it should be the server lifetime context.
func (s *Scheduler) StartCrawl(ctx context.Context, job *model.CrawlJob) {
	s.launch(ctx, job.ID, func(jobCtx context.Context) {
		driver := &crawler.Driver{
			Store:    s.store,
			Pipeline: s.pipeline,
			Renderer: s.renderer,
			Bus:      s.bus,
			Config:   s.cfg.Crawler,
			Worker:   s.cfg.Worker,
			Logger:   s.logger,
		}
		if err := driver.Run(jobCtx, job); err != nil {
			s.failJob(job.ID, true, err)
		}
	})
}

// StartUpload launches the upload worker pool over an in-memory file batch.
func (s *Scheduler) StartUpload(ctx context.Context, job *model.UploadJob, files []ingest.File) {
	s.launch(ctx, job.ID, func(jobCtx context.Context) {
		if err := s.uploader().Run(jobCtx, job, files); err != nil {
			s.failJob(job.ID, false, err)
		}
	})
}

// StartRepo clones the repository and feeds its files through the upload
// pool. Clone failures complete the job with the error.
func (s *Scheduler) StartRepo(ctx context.Context, job *model.UploadJob, opts ingest.RepoOptions) {
	s.launch(ctx, job.ID, func(jobCtx context.Context) {
		files, err := s.fetcher.Fetch(jobCtx, opts)
		if err != nil {
			s.failJob(job.ID, false, err)
			return
		}
		if err := s.store.IncrementUploadCounters(jobCtx, job.ID, 0, len(files), 0); err != nil {
			s.logger.Warn("set repo file total", "job_id", job.ID, "error", err)
		}
		if err := s.uploader().Run(jobCtx, job, files); err != nil {
			s.failJob(job.ID, false, err)
		}
	})
}

func (s *Scheduler) uploader() *ingest.Uploader {
	return &ingest.Uploader{
		Store:             s.store,
		Pipeline:          s.pipeline,
		Bus:               s.bus,
		MaxConcurrent:     s.cfg.Upload.DefaultMaxConcurrent,
		HeartbeatInterval: time.Duration(s.cfg.Worker.HeartbeatIntervalMs) * time.Millisecond,
		PollInterval:      time.Duration(s.cfg.Worker.PollIntervalMs) * time.Millisecond,
		Logger:            s.logger,
	}
}

// launch acquires a slot, registers the cancel function, and runs fn in its
// own goroutine.
func (s *Scheduler) launch(ctx context.Context, jobID uuid.UUID, fn func(context.Context)) {
	jobCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancels[jobID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.cancels, jobID)
			s.mu.Unlock()
			cancel()
		}()

		if err := s.slots.Acquire(jobCtx, 1); err != nil {
			return
		}
		defer s.slots.Release(1)

		fn(jobCtx)
	}()
}

// failJob completes a job whose driver returned a fatal error.
func (s *Scheduler) failJob(jobID uuid.UUID, isCrawl bool, runErr error) {
	s.logger.Error("job driver failed", "job_id", jobID, "error", runErr)
	msg := runErr.Error()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var err error
	if isCrawl {
		err = s.store.CompleteCrawlJob(ctx, jobID, &msg)
	} else {
		err = s.store.CompleteUploadJob(ctx, jobID, &msg)
	}
	if err != nil {
		s.logger.Error("complete failed job", "job_id", jobID, "error", err)
	}
	s.bus.Publish(progress.Event{Type: progress.EventFailed, JobID: jobID, Data: map[string]any{"error": msg}})
}

// CancelCrawl persists the cancellation marker and cancels the driver
// context when the job runs in this process.
func (s *Scheduler) CancelCrawl(ctx context.Context, jobID uuid.UUID) error {
	if err := s.store.SetCrawlConfigKey(ctx, jobID, "cancelled", true); err != nil {
		return err
	}
	s.cancelLocal(jobID)
	return nil
}

// CancelUpload mirrors CancelCrawl for upload jobs.
func (s *Scheduler) CancelUpload(ctx context.Context, jobID uuid.UUID) error {
	if err := s.store.SetUploadConfigKey(ctx, jobID, "cancelled", true); err != nil {
		return err
	}
	s.cancelLocal(jobID)
	return nil
}

func (s *Scheduler) cancelLocal(jobID uuid.UUID) {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Running reports whether the job's driver runs in this process.
func (s *Scheduler) Running(jobID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cancels[jobID]
	return ok
}

// Shutdown cancels every running driver and waits for them to finish.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// RecoverStalled relaunches or completes `running` jobs whose heartbeat went
// stale, typically after an unclean shutdown. Crawl jobs relaunch from their
// stored config while the retry budget allows. Upload jobs relaunch only for
// repositories; direct batches are not retained and complete with an error.
func (s *Scheduler) RecoverStalled(ctx context.Context) error {
	threshold := time.Duration(s.cfg.Worker.StallThresholdMs) * time.Millisecond
	now := time.Now().UTC()

	crawls, err := s.store.ListRunningCrawlJobs(ctx)
	if err != nil {
		return fmt.Errorf("list running crawl jobs: %w", err)
	}
	for i := range crawls {
		job := &crawls[i]
		if !stale(job.LastHeartbeat, job.StartedAt, job.CreatedAt, now, threshold) {
			continue
		}
		retries, err := s.store.IncrementCrawlRetry(ctx, job.ID)
		if err != nil {
			return err
		}
		if retries > job.MaxRetries {
			msg := "stalled: heartbeat lost and retry budget exhausted"
			if err := s.store.CompleteCrawlJob(ctx, job.ID, &msg); err != nil {
				return err
			}
			s.logger.Warn("stalled crawl job abandoned", "job_id", job.ID, "retries", retries)
			continue
		}
		s.logger.Info("relaunching stalled crawl job", "job_id", job.ID, "retries", retries)
		s.StartCrawl(ctx, job)
	}

	uploads, err := s.store.ListRunningUploadJobs(ctx)
	if err != nil {
		return fmt.Errorf("list running upload jobs: %w", err)
	}
	for i := range uploads {
		job := &uploads[i]
		if !stale(job.LastHeartbeat, job.StartedAt, job.CreatedAt, now, threshold) {
			continue
		}
		opts, ok := repoOptionsFromConfig(job.Config)
		if !ok {
			msg := "stalled: uploaded content is not retained for retry"
			if err := s.store.CompleteUploadJob(ctx, job.ID, &msg); err != nil {
				return err
			}
			continue
		}
		retries, err := s.store.IncrementUploadRetry(ctx, job.ID)
		if err != nil {
			return err
		}
		if retries > job.MaxRetries {
			msg := "stalled: heartbeat lost and retry budget exhausted"
			if err := s.store.CompleteUploadJob(ctx, job.ID, &msg); err != nil {
				return err
			}
			continue
		}
		s.logger.Info("relaunching stalled repo job", "job_id", job.ID, "retries", retries)
		s.StartRepo(ctx, job, opts)
	}
	return nil
}

// stale reports whether the newest of the given timestamps is older than
// the threshold.
func stale(heartbeat, started *time.Time, created time.Time, now time.Time, threshold time.Duration) bool {
	newest := created
	if started != nil && started.After(newest) {
		newest = *started
	}
	if heartbeat != nil && heartbeat.After(newest) {
		newest = *heartbeat
	}
	return now.Sub(newest) > threshold
}

// repoOptionsFromConfig rebuilds the clone parameters a repo job stored at
// creation time.
func repoOptionsFromConfig(cfg map[string]any) (ingest.RepoOptions, bool) {
	repoURL, ok := cfg["repo_url"].(string)
	if !ok || repoURL == "" {
		return ingest.RepoOptions{}, false
	}
	opts := ingest.RepoOptions{URL: repoURL}
	if v, ok := cfg["branch"].(string); ok {
		opts.Branch = v
	}
	if v, ok := cfg["path"].(string); ok {
		opts.Path = v
	}
	opts.IncludePatterns = stringSlice(cfg["include"])
	opts.ExcludePatterns = stringSlice(cfg["exclude"])
	return opts, true
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
