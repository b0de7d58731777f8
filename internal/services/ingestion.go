package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"docdex/internal/apperr"
	"docdex/internal/config"
	"docdex/internal/fingerprint"
	"docdex/internal/ingest"
	"docdex/internal/jobs"
	"docdex/internal/model"
	"docdex/internal/store"
)

// IngestionService fronts the scheduler: it validates requests, creates job
// rows, and hands them to the drivers. The store is used concretely because
// the scheduler already binds to it.
type IngestionService struct {
	store    *store.Store
	sched    *jobs.Scheduler
	pipeline *ingest.Pipeline
	cfg      *config.Config
}

func NewIngestionService(st *store.Store, sched *jobs.Scheduler, pipeline *ingest.Pipeline, cfg *config.Config) *IngestionService {
	return &IngestionService{store: st, sched: sched, pipeline: pipeline, cfg: cfg}
}

// CreateCrawlRequest starts a crawl over one documentation site.
type CreateCrawlRequest struct {
	Name          string
	Version       *string
	StartURLs     []string
	MaxDepth      int
	DomainFilter  []string
	URLPatterns   []string
	MaxConcurrent int
	Metadata      map[string]any
}

// CreateCrawl creates and launches a crawl job. A (name, version) collision
// with a finished job reuses that job's row, so the new run adds to the
// existing source; a collision with a running job is a conflict.
func (s *IngestionService) CreateCrawl(ctx context.Context, req CreateCrawlRequest) (*model.CrawlJob, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperr.Validation("missing_name", "name is required")
	}
	if len(req.StartURLs) == 0 {
		return nil, apperr.Validation("missing_start_urls", "at least one start URL is required")
	}
	for _, raw := range req.StartURLs {
		if err := validateHTTPURL(raw); err != nil {
			return nil, err
		}
	}

	cfg := map[string]any{}
	if req.MaxDepth > 0 {
		cfg["max_depth"] = req.MaxDepth
	}
	if req.MaxConcurrent > 0 {
		cfg["max_concurrent"] = req.MaxConcurrent
	}
	if len(req.DomainFilter) > 0 {
		cfg["allowed_domains"] = req.DomainFilter
	}
	if len(req.URLPatterns) > 0 {
		cfg["url_patterns"] = req.URLPatterns
	}
	if len(req.Metadata) > 0 {
		cfg["metadata"] = req.Metadata
	}

	job := &model.CrawlJob{
		Name:       req.Name,
		Version:    req.Version,
		StartURLs:  req.StartURLs,
		MaxRetries: s.cfg.Worker.MaxRetries,
		Config:     cfg,
	}
	err := s.store.CreateCrawlJob(ctx, job)
	switch {
	case err == nil:
	case store.IsUniqueViolation(err):
		existing, findErr := s.store.FindCrawlJobByName(ctx, req.Name, req.Version)
		if findErr != nil {
			return nil, fmt.Errorf("find existing crawl job: %w", findErr)
		}
		if s.sched.Running(existing.ID) {
			return nil, apperr.Conflict("job_running", "crawl job %q is already running", req.Name)
		}
		// Reuse the row: the new run appends to the existing source.
		if err := s.store.UpdateCrawlSeed(ctx, existing.ID, req.StartURLs, cfg); err != nil {
			return nil, fmt.Errorf("reseed crawl job: %w", err)
		}
		job = existing
		job.StartURLs = req.StartURLs
		job.Config = cfg
	default:
		return nil, fmt.Errorf("create crawl job: %w", err)
	}

	s.sched.StartCrawl(context.WithoutCancel(ctx), job)
	return job, nil
}

// RecrawlOptions tune a rerun of an existing crawl job.
type RecrawlOptions struct {
	// RetryFailed seeds the run from the job's FailedPage rows instead of
	// its stored start URLs.
	RetryFailed bool
	// IgnoreHash forces re-extraction of unchanged pages.
	IgnoreHash bool
}

// Recrawl reruns an existing job in place. The job row is reused; counters
// keep growing and unchanged pages are skipped unless IgnoreHash is set.
func (s *IngestionService) Recrawl(ctx context.Context, jobID uuid.UUID, opts RecrawlOptions) (*model.CrawlJob, error) {
	job, err := s.GetCrawl(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if s.sched.Running(job.ID) {
		return nil, apperr.Conflict("job_running", "crawl job %s is already running", jobID)
	}

	if job.Config == nil {
		job.Config = map[string]any{}
	}
	job.Config["cancelled"] = false
	job.Config["ignore_hash"] = opts.IgnoreHash
	if err := s.store.SetCrawlConfigKey(ctx, job.ID, "cancelled", false); err != nil {
		return nil, fmt.Errorf("clear cancellation: %w", err)
	}
	if err := s.store.SetCrawlConfigKey(ctx, job.ID, "ignore_hash", opts.IgnoreHash); err != nil {
		return nil, fmt.Errorf("set ignore_hash: %w", err)
	}

	if opts.RetryFailed {
		failed, err := s.store.ListFailedPages(ctx, job.ID)
		if err != nil {
			return nil, fmt.Errorf("list failed pages: %w", err)
		}
		if len(failed) == 0 {
			return nil, apperr.Validation("no_failed_pages", "crawl job %s has no failed pages to retry", jobID)
		}
		// Seed override is in-memory only; the stored start URLs keep
		// serving future full recrawls.
		seeds := make([]string, len(failed))
		for i, page := range failed {
			seeds[i] = page.URL
		}
		job.StartURLs = seeds
	}

	s.sched.StartCrawl(context.WithoutCancel(ctx), job)
	return job, nil
}

// GetCrawl returns one crawl job.
func (s *IngestionService) GetCrawl(ctx context.Context, jobID uuid.UUID) (*model.CrawlJob, error) {
	job, err := s.store.GetCrawlJob(ctx, jobID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NotFound("job_not_found", "no crawl job with id %s", jobID)
		}
		return nil, fmt.Errorf("get crawl job: %w", err)
	}
	return job, nil
}

// ListCrawls returns a page of crawl jobs, newest first.
func (s *IngestionService) ListCrawls(ctx context.Context, limit, offset int) ([]model.CrawlJob, int, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListCrawlJobs(ctx, limit, offset)
}

// CancelCrawl requests cooperative cancellation of a running crawl.
func (s *IngestionService) CancelCrawl(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.GetCrawl(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusRunning {
		return apperr.Conflict("job_not_running", "crawl job %s is not running", jobID)
	}
	return s.sched.CancelCrawl(ctx, jobID)
}

// DeleteCrawl cancels the job if it runs here and removes it with all its
// documents and snippets.
func (s *IngestionService) DeleteCrawl(ctx context.Context, jobID uuid.UUID) error {
	if s.sched.Running(jobID) {
		if err := s.sched.CancelCrawl(ctx, jobID); err != nil {
			return err
		}
	}
	deleted, err := s.store.DeleteCrawlJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("delete crawl job: %w", err)
	}
	if !deleted {
		return apperr.NotFound("job_not_found", "no crawl job with id %s", jobID)
	}
	return nil
}

// CancelCrawls cancels every given running job, returning how many accepted
// the request.
func (s *IngestionService) CancelCrawls(ctx context.Context, ids []uuid.UUID) (int, error) {
	cancelled := 0
	for _, id := range ids {
		err := s.CancelCrawl(ctx, id)
		switch {
		case err == nil:
			cancelled++
		case apperr.KindOf(err) == apperr.KindNotFound, apperr.KindOf(err) == apperr.KindConflict:
		default:
			return cancelled, err
		}
	}
	return cancelled, nil
}

// DeleteCrawls removes every given job, returning how many existed.
func (s *IngestionService) DeleteCrawls(ctx context.Context, ids []uuid.UUID) (int, error) {
	deleted := 0
	for _, id := range ids {
		err := s.DeleteCrawl(ctx, id)
		switch {
		case err == nil:
			deleted++
		case apperr.KindOf(err) == apperr.KindNotFound:
		default:
			return deleted, err
		}
	}
	return deleted, nil
}

// CrawlFailedPages lists the pages a crawl job could not ingest.
func (s *IngestionService) CrawlFailedPages(ctx context.Context, jobID uuid.UUID) ([]model.FailedPage, error) {
	if _, err := s.GetCrawl(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.ListFailedPages(ctx, jobID)
}

// UploadMarkdownRequest ingests one markdown body synchronously.
type UploadMarkdownRequest struct {
	Name    string
	Title   string
	Content string
}

// UploadMarkdownResult reports the document and its extracted snippets.
type UploadMarkdownResult struct {
	JobID         uuid.UUID `json:"job_id"`
	DocumentID    uuid.UUID `json:"document_id"`
	SnippetsCount int       `json:"snippets_count"`
}

// UploadMarkdown runs the pipeline inline and completes the job before
// returning, so the snippets are queryable immediately.
func (s *IngestionService) UploadMarkdown(ctx context.Context, req UploadMarkdownRequest) (*UploadMarkdownResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperr.Validation("missing_name", "name is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperr.Validation("missing_content", "content is required")
	}
	if int64(len(req.Content)) > s.cfg.Upload.MaxFileSizeBytes {
		return nil, apperr.Validation("file_too_large", "content exceeds the %d byte limit", s.cfg.Upload.MaxFileSizeBytes)
	}

	job, err := s.uploadJob(ctx, req.Name, nil, 1, map[string]any{})
	if err != nil {
		return nil, err
	}
	if err := s.store.StartUploadJob(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("start upload job: %w", err)
	}

	title := strings.TrimSpace(req.Title)
	path := slugify(title)
	if path == "" {
		// Untitled bodies get a content-addressed path so repeated
		// uploads to one source never collide.
		path = "doc-" + fingerprint.Content(req.Content)[:8]
	}
	if title == "" {
		title = req.Name
	}

	result, err := s.pipeline.ProcessPage(ctx, ingest.Page{
		URL:         ingest.UploadURL(job.ID, path+".md"),
		Title:       title,
		Content:     req.Content,
		ContentType: model.ContentTypeMarkdown,
		UploadJobID: &job.ID,
		SourceType:  model.SourceTypeUpload,
		IgnoreHash:  true,
	})
	if err != nil {
		msg := err.Error()
		if completeErr := s.store.CompleteUploadJob(context.WithoutCancel(ctx), job.ID, &msg); completeErr != nil {
			return nil, fmt.Errorf("complete upload job: %w", completeErr)
		}
		return nil, apperr.Upstream("ingest_failed", err, "markdown ingestion failed")
	}

	if err := s.store.IncrementUploadCounters(ctx, job.ID, 1, 1, result.Snippets); err != nil {
		return nil, fmt.Errorf("update upload counters: %w", err)
	}
	if err := s.store.CompleteUploadJob(ctx, job.ID, nil); err != nil {
		return nil, fmt.Errorf("complete upload job: %w", err)
	}
	return &UploadMarkdownResult{JobID: job.ID, DocumentID: result.DocumentID, SnippetsCount: result.Snippets}, nil
}

// UploadFilesRequest ingests an in-memory batch asynchronously.
type UploadFilesRequest struct {
	Name    string
	Version *string
	// Title overrides the document title when the batch holds one file;
	// larger batches title documents by path.
	Title         string
	Files         []model.UploadFile
	MaxConcurrent int
}

// UploadFiles validates the batch against the configured caps and launches
// the upload worker pool. Returns immediately with the job.
func (s *IngestionService) UploadFiles(ctx context.Context, req UploadFilesRequest) (*model.UploadJob, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperr.Validation("missing_name", "name is required")
	}
	if len(req.Files) == 0 {
		return nil, apperr.Validation("missing_files", "at least one file is required")
	}
	if len(req.Files) > s.cfg.Upload.MaxFiles {
		return nil, apperr.Validation("too_many_files", "batch exceeds the %d file limit", s.cfg.Upload.MaxFiles)
	}
	for _, f := range req.Files {
		if strings.TrimSpace(f.Path) == "" {
			return nil, apperr.Validation("missing_path", "every file needs a path")
		}
		if int64(len(f.Content)) > s.cfg.Upload.MaxFileSizeBytes {
			return nil, apperr.Validation("file_too_large", "file %q exceeds the %d byte limit", f.Path, s.cfg.Upload.MaxFileSizeBytes)
		}
	}

	cfg := map[string]any{}
	if req.MaxConcurrent > 0 {
		cfg["max_concurrent"] = req.MaxConcurrent
	}
	job, err := s.uploadJob(ctx, req.Name, req.Version, len(req.Files), cfg)
	if err != nil {
		return nil, err
	}

	files := make([]ingest.File, len(req.Files))
	for i, f := range req.Files {
		files[i] = ingest.File{
			URL:     ingest.UploadURL(job.ID, f.Path),
			Path:    f.Path,
			Content: f.Content,
		}
	}
	if req.Title != "" && len(files) == 1 {
		files[0].Title = req.Title
	}

	s.sched.StartUpload(context.WithoutCancel(ctx), job, files)
	return job, nil
}

// UploadRepoRequest clones a Git repository and ingests its docs.
type UploadRepoRequest struct {
	RepoURL string
	Name    string
	Version *string
	Path    string
	Branch  string
	// Token authenticates the clone. It stays in memory; the persisted
	// job config never carries it, so stall recovery reclones without it.
	Token   string
	Include []string
	Exclude []string
}

// UploadRepo launches a repository ingestion job.
func (s *IngestionService) UploadRepo(ctx context.Context, req UploadRepoRequest) (*model.UploadJob, error) {
	req.RepoURL = strings.TrimSpace(req.RepoURL)
	if req.RepoURL == "" {
		return nil, apperr.Validation("missing_repo_url", "repo_url is required")
	}
	if err := validateHTTPURL(req.RepoURL); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = repoName(req.RepoURL)
	}

	cfg := map[string]any{"repo_url": req.RepoURL}
	if req.Branch != "" {
		cfg["branch"] = req.Branch
	}
	if req.Path != "" {
		cfg["path"] = req.Path
	}
	if len(req.Include) > 0 {
		cfg["include"] = req.Include
	}
	if len(req.Exclude) > 0 {
		cfg["exclude"] = req.Exclude
	}

	job, err := s.uploadJob(ctx, name, req.Version, 0, cfg)
	if err != nil {
		return nil, err
	}

	s.sched.StartRepo(context.WithoutCancel(ctx), job, ingest.RepoOptions{
		URL:             req.RepoURL,
		Branch:          req.Branch,
		Path:            req.Path,
		IncludePatterns: req.Include,
		ExcludePatterns: req.Exclude,
		Token:           req.Token,
	})
	return job, nil
}

// uploadJob creates the job row or, on a (name, version) collision with a
// finished job, reuses the existing row so the batch adds to its source.
func (s *IngestionService) uploadJob(ctx context.Context, name string, version *string, totalFiles int, cfg map[string]any) (*model.UploadJob, error) {
	job := &model.UploadJob{
		Name:       name,
		Version:    version,
		TotalFiles: totalFiles,
		MaxRetries: s.cfg.Worker.MaxRetries,
		Config:     cfg,
	}
	err := s.store.CreateUploadJob(ctx, job)
	switch {
	case err == nil:
		return job, nil
	case store.IsUniqueViolation(err):
		existing, findErr := s.store.FindUploadJobByName(ctx, name, version)
		if findErr != nil {
			return nil, fmt.Errorf("find existing upload job: %w", findErr)
		}
		if s.sched.Running(existing.ID) {
			return nil, apperr.Conflict("job_running", "upload job %q is already running", name)
		}
		if existing.Config == nil {
			existing.Config = map[string]any{}
		}
		for k, v := range cfg {
			existing.Config[k] = v
			if setErr := s.store.SetUploadConfigKey(ctx, existing.ID, k, v); setErr != nil {
				return nil, fmt.Errorf("update upload config: %w", setErr)
			}
		}
		existing.Config["cancelled"] = false
		if setErr := s.store.SetUploadConfigKey(ctx, existing.ID, "cancelled", false); setErr != nil {
			return nil, fmt.Errorf("clear cancellation: %w", setErr)
		}
		return existing, nil
	default:
		return nil, fmt.Errorf("create upload job: %w", err)
	}
}

// UploadStatus returns one upload job with its failed-page count.
func (s *IngestionService) UploadStatus(ctx context.Context, jobID uuid.UUID) (*model.UploadJob, int, error) {
	job, err := s.store.GetUploadJob(ctx, jobID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, 0, apperr.NotFound("job_not_found", "no upload job with id %s", jobID)
		}
		return nil, 0, fmt.Errorf("get upload job: %w", err)
	}
	failed, err := s.store.CountFailedPages(ctx, jobID)
	if err != nil {
		return nil, 0, fmt.Errorf("count failed pages: %w", err)
	}
	return job, failed, nil
}

// CancelUpload requests cooperative cancellation of a running upload.
func (s *IngestionService) CancelUpload(ctx context.Context, jobID uuid.UUID) error {
	job, _, err := s.UploadStatus(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusRunning {
		return apperr.Conflict("job_not_running", "upload job %s is not running", jobID)
	}
	return s.sched.CancelUpload(ctx, jobID)
}

// UploadLimits are the caps clients should validate against before sending a
// batch.
type UploadLimits struct {
	MaxFileSizeBytes int64 `json:"max_file_size_bytes"`
	MaxFiles         int   `json:"max_files"`
	MaxConcurrent    int   `json:"max_concurrent"`
}

// UploadConfig reports the configured upload caps.
func (s *IngestionService) UploadConfig() UploadLimits {
	return UploadLimits{
		MaxFileSizeBytes: s.cfg.Upload.MaxFileSizeBytes,
		MaxFiles:         s.cfg.Upload.MaxFiles,
		MaxConcurrent:    s.cfg.Upload.DefaultMaxConcurrent,
	}
}

// validateHTTPURL accepts absolute http(s) URLs only.
func validateHTTPURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Validation("invalid_url", "%q is not an absolute http(s) URL", raw)
	}
	return nil
}

// repoName derives a source name from the clone URL's last path segment.
func repoName(repoURL string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" {
		return "repository"
	}
	return trimmed
}

// slugify lowercases and hyphenates a title into a path segment.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
