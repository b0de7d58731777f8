package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"docdex/internal/config"
	"docdex/internal/ingest"
	"docdex/internal/metrics"
	"docdex/internal/model"
	"docdex/internal/progress"
)

// Store is the slice of the SQL store the driver needs.
type Store interface {
	StartCrawlJob(ctx context.Context, id uuid.UUID) error
	GetCrawlJob(ctx context.Context, id uuid.UUID) (*model.CrawlJob, error)
	SetCrawlPhase(ctx context.Context, id uuid.UUID, phase model.CrawlPhase) error
	CompleteCrawlJob(ctx context.Context, id uuid.UUID, errMsg *string) error
	IncrementCrawlCounters(ctx context.Context, id uuid.UUID, pages, total, snippets int) error
	TouchCrawlHeartbeat(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordCrawlFailure(ctx context.Context, crawlJobID uuid.UUID, url, errMsg string) error
	ClearFailedPage(ctx context.Context, jobID uuid.UUID, url string) error
}

// Options are the per-job crawl parameters read from the job config.
type Options struct {
	MaxDepth       int
	MaxConcurrent  int
	AllowedDomains []string
	URLPatterns    []string
	IgnoreHash     bool
}

// OptionsFromConfig reads the job's stored config map, clamping to the
// server limits.
func OptionsFromConfig(jobCfg map[string]any, cfg config.CrawlerConfig) Options {
	opts := Options{
		MaxDepth:      intKey(jobCfg, "max_depth", cfg.MaxDepthLimit),
		MaxConcurrent: intKey(jobCfg, "max_concurrent", cfg.DefaultMaxConcurrent),
		IgnoreHash:    boolKey(jobCfg, "ignore_hash"),
	}
	opts.AllowedDomains = stringsKey(jobCfg, "allowed_domains")
	opts.URLPatterns = stringsKey(jobCfg, "url_patterns")

	if opts.MaxDepth > cfg.MaxDepthLimit {
		opts.MaxDepth = cfg.MaxDepthLimit
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	if opts.MaxConcurrent > cfg.MaxConcurrentLimit {
		opts.MaxConcurrent = cfg.MaxConcurrentLimit
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	return opts
}

func intKey(m map[string]any, key string, fallback int) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

func boolKey(m map[string]any, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

func stringsKey(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
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

// Driver runs one crawl job to completion.
type Driver struct {
	Store    Store
	Pipeline *ingest.Pipeline
	Renderer Renderer
	Bus      *progress.Bus
	Config   config.CrawlerConfig
	Worker   config.WorkerConfig
	Logger   *slog.Logger
}

// Run executes the crawl loop for one job: seed, fan out workers, heartbeat,
// finalize. Per-page failures are recorded and never fail the job; Run
// returns nil on cooperative cancellation.
func (d *Driver) Run(ctx context.Context, job *model.CrawlJob) error {
	logger := d.Logger.With("job_id", job.ID, "name", job.Name)

	if err := d.Store.StartCrawlJob(ctx, job.ID); err != nil {
		return err
	}

	opts := OptionsFromConfig(job.Config, d.Config)
	filter := &Filter{
		AllowedDomains: opts.AllowedDomains,
		URLPatterns:    opts.URLPatterns,
		MaxDepth:       opts.MaxDepth,
	}
	if len(filter.AllowedDomains) == 0 {
		filter.AllowedDomains = seedDomains(job.StartURLs)
	}

	var robots *Robots
	if d.Config.RespectRobots {
		robots = NewRobots(d.Config.UserAgent, time.Duration(d.Config.FetchTimeoutMs)*time.Millisecond)
	}

	crawlCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	frontier := NewFrontier(d.Config.QueueCapacity)
	defer frontier.Close()

	seeded := 0
	for _, raw := range job.StartURLs {
		normalized, ok := Normalize(nil, raw)
		if !ok {
			continue
		}
		if frontier.Add(crawlCtx, normalized, 0, "") {
			seeded++
		}
	}
	if seeded > 0 {
		if err := d.Store.IncrementCrawlCounters(ctx, job.ID, 0, seeded, 0); err != nil {
			logger.Warn("seed counter update failed", "error", err)
		}
	}

	var cancelled atomic.Bool
	var watchers sync.WaitGroup
	watchers.Add(1)
	go func() {
		defer watchers.Done()
		d.watch(crawlCtx, cancel, job.ID, &cancelled)
	}()

	var workers sync.WaitGroup
	for i := 0; i < opts.MaxConcurrent; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for {
				item, ok := frontier.Next()
				if !ok {
					return
				}
				if crawlCtx.Err() != nil {
					frontier.Done()
					continue
				}
				d.processPage(crawlCtx, job.ID, item, opts, filter, robots, frontier, logger)
				frontier.Done()
			}
		}()
	}
	workers.Wait()
	cancel()
	watchers.Wait()

	if err := d.Store.SetCrawlPhase(ctx, job.ID, model.PhaseFinalizing); err != nil {
		logger.Warn("set finalizing phase failed", "error", err)
	}

	var errMsg *string
	eventType := progress.EventCompleted
	outcome := "completed"
	if cancelled.Load() || ctx.Err() != nil {
		msg := "cancelled"
		errMsg = &msg
		eventType = progress.EventFailed
		outcome = "cancelled"
	}
	if err := d.Store.CompleteCrawlJob(context.WithoutCancel(ctx), job.ID, errMsg); err != nil {
		return err
	}

	metrics.RecordJob("crawl", outcome)
	d.Bus.Publish(progress.Event{Type: eventType, JobID: job.ID})
	logger.Info("crawl job finished", "cancelled", errMsg != nil)
	return nil
}

// watch heartbeats on a fixed interval and polls for the cancellation
// marker, cancelling the crawl context when it appears.
func (d *Driver) watch(ctx context.Context, cancel context.CancelFunc, jobID uuid.UUID, cancelled *atomic.Bool) {
	heartbeat := time.NewTicker(time.Duration(d.Worker.HeartbeatIntervalMs) * time.Millisecond)
	defer heartbeat.Stop()
	poll := time.NewTicker(time.Duration(d.Worker.PollIntervalMs) * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if err := d.Store.TouchCrawlHeartbeat(ctx, jobID, time.Now().UTC()); err != nil {
				d.Logger.Warn("heartbeat failed", "job_id", jobID, "error", err)
			}
			d.Bus.Publish(progress.Event{Type: progress.EventHeartbeat, JobID: jobID})
		case <-poll.C:
			job, err := d.Store.GetCrawlJob(ctx, jobID)
			if err != nil {
				continue
			}
			if job.Cancelled() {
				cancelled.Store(true)
				cancel()
				return
			}
		}
	}
}

func (d *Driver) processPage(ctx context.Context, jobID uuid.UUID, item Item, opts Options, filter *Filter, robots *Robots, frontier *Frontier, logger *slog.Logger) {
	if robots != nil && !robots.Allowed(ctx, item.URL) {
		logger.Debug("robots.txt disallows url", "url", item.URL)
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(d.Config.FetchTimeoutMs)*time.Millisecond)
	page, err := d.Renderer.Render(fetchCtx, item.URL)
	cancel()
	if err != nil {
		d.recordFailure(ctx, jobID, item.URL, err, logger)
		return
	}

	var parent *string
	if item.ParentURL != "" {
		parent = &item.ParentURL
	}
	result, err := d.Pipeline.ProcessPage(ctx, ingest.Page{
		URL:         item.URL,
		Title:       page.Title,
		Content:     page.Markdown,
		ContentType: model.ContentTypeMarkdown,
		CrawlDepth:  item.Depth,
		ParentURL:   parent,
		CrawlJobID:  &jobID,
		SourceType:  model.SourceTypeCrawl,
		IgnoreHash:  opts.IgnoreHash,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		d.recordFailure(ctx, jobID, item.URL, err, logger)
		return
	}

	admitted := 0
	if item.Depth < opts.MaxDepth {
		for _, link := range page.Links {
			if !filter.Allow(link, item.Depth+1) {
				continue
			}
			if frontier.Add(ctx, link, item.Depth+1, item.URL) {
				admitted++
			}
		}
	}

	if err := d.Store.ClearFailedPage(ctx, jobID, item.URL); err != nil {
		logger.Warn("clear failed page", "url", item.URL, "error", err)
	}
	if err := d.Store.IncrementCrawlCounters(ctx, jobID, 1, admitted, result.Snippets); err != nil {
		logger.Warn("counter update failed", "url", item.URL, "error", err)
	}

	d.Bus.Publish(progress.Event{
		Type:  progress.EventCrawlUpdate,
		JobID: jobID,
		Data: map[string]any{
			"url":       item.URL,
			"depth":     item.Depth,
			"snippets":  result.Snippets,
			"unchanged": result.Unchanged,
		},
	})
}

func (d *Driver) recordFailure(ctx context.Context, jobID uuid.UUID, pageURL string, pageErr error, logger *slog.Logger) {
	logger.Debug("page failed", "url", pageURL, "error", pageErr)
	if err := d.Store.RecordCrawlFailure(context.WithoutCancel(ctx), jobID, pageURL, pageErr.Error()); err != nil {
		logger.Warn("record failed page", "url", pageURL, "error", err)
	}
}

func seedDomains(startURLs []string) []string {
	var domains []string
	seen := make(map[string]struct{})
	for _, raw := range startURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		host := u.Hostname()
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		domains = append(domains, host)
	}
	return domains
}
