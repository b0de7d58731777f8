package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"docdex/internal/metrics"
	"docdex/internal/model"
	"docdex/internal/progress"
)

// UploadStore is the slice of the store the upload path needs beyond the
// pipeline.
type UploadStore interface {
	StartUploadJob(ctx context.Context, id uuid.UUID) error
	GetUploadJob(ctx context.Context, id uuid.UUID) (*model.UploadJob, error)
	CompleteUploadJob(ctx context.Context, id uuid.UUID, errMsg *string) error
	IncrementUploadCounters(ctx context.Context, id uuid.UUID, files, total, snippets int) error
	TouchUploadHeartbeat(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordUploadFailure(ctx context.Context, uploadJobID uuid.UUID, url, errMsg string) error
	ClearFailedPage(ctx context.Context, jobID uuid.UUID, url string) error
}

// Uploader runs upload jobs: direct file batches and cloned repositories.
type Uploader struct {
	Store         UploadStore
	Pipeline      *Pipeline
	Bus           *progress.Bus
	MaxConcurrent int
	// HeartbeatInterval and PollInterval mirror the crawl driver's cadence.
	HeartbeatInterval time.Duration
	PollInterval      time.Duration
	Logger            *slog.Logger
}

// File is one ingestable file with its synthetic or repo-derived URL.
type File struct {
	URL     string
	Path    string
	Title   string
	Content string
}

// UploadURL builds the synthetic URL for one directly uploaded file.
func UploadURL(jobID uuid.UUID, filePath string) string {
	return fmt.Sprintf("upload://%s/%s", jobID, strings.TrimPrefix(filePath, "/"))
}

// contentTypeFor maps a file extension onto the parser's input formats;
// anything that is not HTML goes through the markdown parser, which also
// handles plain text (no fences, no snippets).
func contentTypeFor(filePath string) model.ContentType {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".html", ".htm":
		return model.ContentTypeHTML
	default:
		return model.ContentTypeMarkdown
	}
}

// Run processes the job's files through the shared pipeline with a bounded
// worker pool. Per-file failures become FailedPage rows; the job itself only
// fails on cancellation.
func (u *Uploader) Run(ctx context.Context, job *model.UploadJob, files []File) error {
	logger := u.Logger.With("job_id", job.ID, "name", job.Name)

	if err := u.Store.StartUploadJob(ctx, job.ID); err != nil {
		return err
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var cancelled atomic.Bool
	var watchers sync.WaitGroup
	watchers.Add(1)
	go func() {
		defer watchers.Done()
		u.watch(jobCtx, cancel, job.ID, &cancelled)
	}()

	workers := u.MaxConcurrent
	if n := intConfig(job.Config, "max_concurrent"); n > 0 && n < workers {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	queue := make(chan File)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range queue {
				if jobCtx.Err() != nil {
					continue
				}
				u.processFile(jobCtx, job, file, logger)
			}
		}()
	}

feed:
	for _, file := range files {
		select {
		case queue <- file:
		case <-jobCtx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()
	cancel()
	watchers.Wait()

	var errMsg *string
	eventType := progress.EventCompleted
	outcome := "completed"
	if cancelled.Load() || ctx.Err() != nil {
		msg := "cancelled"
		errMsg = &msg
		eventType = progress.EventFailed
		outcome = "cancelled"
	}
	if err := u.Store.CompleteUploadJob(context.WithoutCancel(ctx), job.ID, errMsg); err != nil {
		return err
	}

	metrics.RecordJob("upload", outcome)
	u.Bus.Publish(progress.Event{Type: eventType, JobID: job.ID})
	logger.Info("upload job finished", "files", len(files), "cancelled", errMsg != nil)
	return nil
}

func (u *Uploader) processFile(ctx context.Context, job *model.UploadJob, file File, logger *slog.Logger) {
	title := file.Title
	if title == "" {
		title = file.Path
	}
	result, err := u.Pipeline.ProcessPage(ctx, Page{
		URL:         file.URL,
		Title:       title,
		Content:     file.Content,
		ContentType: contentTypeFor(file.Path),
		UploadJobID: &job.ID,
		SourceType:  model.SourceTypeUpload,
		IgnoreHash:  boolConfig(job.Config, "ignore_hash"),
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Debug("file failed", "path", file.Path, "error", err)
		if rerr := u.Store.RecordUploadFailure(context.WithoutCancel(ctx), job.ID, file.URL, err.Error()); rerr != nil {
			logger.Warn("record failed file", "path", file.Path, "error", rerr)
		}
		return
	}

	if err := u.Store.ClearFailedPage(ctx, job.ID, file.URL); err != nil {
		logger.Warn("clear failed file", "path", file.Path, "error", err)
	}
	if err := u.Store.IncrementUploadCounters(ctx, job.ID, 1, 0, result.Snippets); err != nil {
		logger.Warn("counter update failed", "path", file.Path, "error", err)
	}

	u.Bus.Publish(progress.Event{
		Type:  progress.EventUploadUpdate,
		JobID: job.ID,
		Data: map[string]any{
			"path":      file.Path,
			"snippets":  result.Snippets,
			"unchanged": result.Unchanged,
		},
	})
}

func (u *Uploader) watch(ctx context.Context, cancel context.CancelFunc, jobID uuid.UUID, cancelled *atomic.Bool) {
	heartbeat := time.NewTicker(u.HeartbeatInterval)
	defer heartbeat.Stop()
	poll := time.NewTicker(u.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if err := u.Store.TouchUploadHeartbeat(ctx, jobID, time.Now().UTC()); err != nil {
				u.Logger.Warn("heartbeat failed", "job_id", jobID, "error", err)
			}
			u.Bus.Publish(progress.Event{Type: progress.EventHeartbeat, JobID: jobID})
		case <-poll.C:
			job, err := u.Store.GetUploadJob(ctx, jobID)
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

func boolConfig(m map[string]any, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

// intConfig reads a numeric config key; jsonb round-trips numbers as
// float64.
func intConfig(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
