package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"docdex/internal/model"
)

const crawlJobColumns = `id, name, version, start_urls, status, crawl_phase,
	processed_pages, total_pages, snippets_extracted, error_message,
	retry_count, max_retries, config, last_heartbeat,
	created_at, started_at, completed_at, updated_at`

const uploadJobColumns = `id, name, version, status,
	processed_files, total_files, snippets_extracted, error_message,
	retry_count, max_retries, config, last_heartbeat,
	created_at, started_at, completed_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrawlJob(row rowScanner) (*model.CrawlJob, error) {
	var (
		j          model.CrawlJob
		version    sql.NullString
		startURLs  pqtype.NullRawMessage
		phase      sql.NullString
		errMsg     sql.NullString
		config     pqtype.NullRawMessage
		heartbeat  sql.NullTime
		startedAt  sql.NullTime
		completed  sql.NullTime
	)
	err := row.Scan(&j.ID, &j.Name, &version, &startURLs, &j.Status, &phase,
		&j.ProcessedPages, &j.TotalPages, &j.SnippetsExtracted, &errMsg,
		&j.RetryCount, &j.MaxRetries, &config, &heartbeat,
		&j.CreatedAt, &startedAt, &completed, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if version.Valid {
		j.Version = &version.String
	}
	if j.StartURLs, err = scanJSONStrings(startURLs); err != nil {
		return nil, err
	}
	if phase.Valid {
		j.Phase = model.CrawlPhase(phase.String)
	}
	if errMsg.Valid {
		j.ErrorMessage = &errMsg.String
	}
	if j.Config, err = scanJSONMap(config); err != nil {
		return nil, err
	}
	if heartbeat.Valid {
		j.LastHeartbeat = &heartbeat.Time
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completed.Valid {
		j.CompletedAt = &completed.Time
	}
	return &j, nil
}

func scanUploadJob(row rowScanner) (*model.UploadJob, error) {
	var (
		j         model.UploadJob
		version   sql.NullString
		errMsg    sql.NullString
		config    pqtype.NullRawMessage
		heartbeat sql.NullTime
		startedAt sql.NullTime
		completed sql.NullTime
	)
	err := row.Scan(&j.ID, &j.Name, &version, &j.Status,
		&j.ProcessedFiles, &j.TotalFiles, &j.SnippetsExtracted, &errMsg,
		&j.RetryCount, &j.MaxRetries, &config, &heartbeat,
		&j.CreatedAt, &startedAt, &completed, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if version.Valid {
		j.Version = &version.String
	}
	if errMsg.Valid {
		j.ErrorMessage = &errMsg.String
	}
	if j.Config, err = scanJSONMap(config); err != nil {
		return nil, err
	}
	if heartbeat.Valid {
		j.LastHeartbeat = &heartbeat.Time
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completed.Valid {
		j.CompletedAt = &completed.Time
	}
	return &j, nil
}

// CreateCrawlJob inserts a new crawl job in state running. A unique
// violation on (name, version) surfaces unchanged so callers can offer the
// add-to-existing affordance.
func (s *Store) CreateCrawlJob(ctx context.Context, job *model.CrawlJob) error {
	if job.ID == uuid.Nil {
		job.ID = newID()
	}
	urls, err := sliceParam(job.StartURLs)
	if err != nil {
		return err
	}
	config, err := mapParam(job.Config)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO crawl_jobs (id, name, version, start_urls, status, max_retries, config)
		VALUES ($1, $2, $3, $4::jsonb, 'running', $5, $6::jsonb)`,
		job.ID, job.Name, job.Version, urls, job.MaxRetries, config)
	if err != nil {
		return fmt.Errorf("insert crawl job: %w", err)
	}
	return nil
}

// GetCrawlJob returns one crawl job by id.
func (s *Store) GetCrawlJob(ctx context.Context, id uuid.UUID) (*model.CrawlJob, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+crawlJobColumns+` FROM crawl_jobs WHERE id = $1`, id)
	return scanCrawlJob(row)
}

// FindCrawlJobByName returns the crawl job with the given (name, version)
// pair, where a nil version matches the empty version.
func (s *Store) FindCrawlJobByName(ctx context.Context, name string, version *string) (*model.CrawlJob, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+crawlJobColumns+` FROM crawl_jobs
		WHERE name = $1 AND COALESCE(version, '') = COALESCE($2, '')`,
		name, version)
	return scanCrawlJob(row)
}

// ListCrawlJobs returns a page of crawl jobs, newest first, plus the total
// count.
func (s *Store) ListCrawlJobs(ctx context.Context, limit, offset int) ([]model.CrawlJob, int, error) {
	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT count(*) FROM crawl_jobs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+crawlJobColumns+` FROM crawl_jobs
		ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var jobs []model.CrawlJob
	for rows.Next() {
		j, err := scanCrawlJob(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, total, rows.Err()
}

// ListRunningCrawlJobs returns every crawl job still in state running.
func (s *Store) ListRunningCrawlJobs(ctx context.Context) ([]model.CrawlJob, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+crawlJobColumns+` FROM crawl_jobs
		WHERE status = 'running' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.CrawlJob
	for rows.Next() {
		j, err := scanCrawlJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// StartCrawlJob records the moment a driver picked the job up.
func (s *Store) StartCrawlJob(ctx context.Context, id uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE crawl_jobs SET started_at = COALESCE(started_at, now()),
			status = 'running', crawl_phase = 'crawling',
			error_message = NULL, completed_at = NULL
		WHERE id = $1`, id)
	return err
}

// SetCrawlPhase updates the progress phase of a running crawl.
func (s *Store) SetCrawlPhase(ctx context.Context, id uuid.UUID, phase model.CrawlPhase) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE crawl_jobs SET crawl_phase = $2 WHERE id = $1`, id, string(phase))
	return err
}

// CompleteCrawlJob moves the job to its terminal state. errMsg is nil on
// success and cancellation; the cancel marker lives in the config map.
func (s *Store) CompleteCrawlJob(ctx context.Context, id uuid.UUID, errMsg *string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE crawl_jobs SET status = 'completed', crawl_phase = NULL,
			completed_at = now(), error_message = $2
		WHERE id = $1`, id, errMsg)
	return err
}

// IncrementCrawlCounters adds non-negative deltas to the job counters, so
// they are monotone over a job's lifetime.
func (s *Store) IncrementCrawlCounters(ctx context.Context, id uuid.UUID, pages, total, snippets int) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE crawl_jobs SET
			processed_pages = processed_pages + $2,
			total_pages = total_pages + $3,
			snippets_extracted = snippets_extracted + $4
		WHERE id = $1`, id, pages, total, snippets)
	return err
}

// TouchCrawlHeartbeat writes the heartbeat. GREATEST keeps it monotonic
// when a stale driver races a recovered one.
func (s *Store) TouchCrawlHeartbeat(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE crawl_jobs SET last_heartbeat = GREATEST(COALESCE(last_heartbeat, 'epoch'::timestamptz), $2)
		WHERE id = $1`, id, at)
	return err
}

// SetCrawlConfigKey sets one key in the job's free-form config map.
func (s *Store) SetCrawlConfigKey(ctx context.Context, id uuid.UUID, key string, value any) error {
	payload, err := jsonbParam(value)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		UPDATE crawl_jobs SET config = jsonb_set(config, ARRAY[$2], $3::jsonb)
		WHERE id = $1`, id, key, payload)
	return err
}

// UpdateCrawlSeed replaces a job's start URLs and config ahead of a rerun
// that reuses the existing row.
func (s *Store) UpdateCrawlSeed(ctx context.Context, id uuid.UUID, startURLs []string, config map[string]any) error {
	urls, err := sliceParam(startURLs)
	if err != nil {
		return err
	}
	payload, err := mapParam(config)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		UPDATE crawl_jobs SET start_urls = $2::jsonb, config = $3::jsonb
		WHERE id = $1`, id, urls, payload)
	return err
}

// IncrementCrawlRetry bumps retry_count and returns the new value.
func (s *Store) IncrementCrawlRetry(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `
		UPDATE crawl_jobs SET retry_count = retry_count + 1
		WHERE id = $1 RETURNING retry_count`, id).Scan(&count)
	return count, err
}

// DeleteCrawlJob removes the job row; documents and snippets cascade.
func (s *Store) DeleteCrawlJob(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM crawl_jobs WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CreateUploadJob inserts a new upload job in state running.
func (s *Store) CreateUploadJob(ctx context.Context, job *model.UploadJob) error {
	if job.ID == uuid.Nil {
		job.ID = newID()
	}
	config, err := mapParam(job.Config)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO upload_jobs (id, name, version, status, total_files, max_retries, config)
		VALUES ($1, $2, $3, 'running', $4, $5, $6::jsonb)`,
		job.ID, job.Name, job.Version, job.TotalFiles, job.MaxRetries, config)
	if err != nil {
		return fmt.Errorf("insert upload job: %w", err)
	}
	return nil
}

// GetUploadJob returns one upload job by id.
func (s *Store) GetUploadJob(ctx context.Context, id uuid.UUID) (*model.UploadJob, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+uploadJobColumns+` FROM upload_jobs WHERE id = $1`, id)
	return scanUploadJob(row)
}

// FindUploadJobByName returns the upload job with the given (name, version).
func (s *Store) FindUploadJobByName(ctx context.Context, name string, version *string) (*model.UploadJob, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+uploadJobColumns+` FROM upload_jobs
		WHERE name = $1 AND COALESCE(version, '') = COALESCE($2, '')`,
		name, version)
	return scanUploadJob(row)
}

// ListRunningUploadJobs returns every upload job still in state running.
func (s *Store) ListRunningUploadJobs(ctx context.Context) ([]model.UploadJob, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+uploadJobColumns+` FROM upload_jobs
		WHERE status = 'running' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.UploadJob
	for rows.Next() {
		j, err := scanUploadJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// StartUploadJob records the moment a driver picked the job up.
func (s *Store) StartUploadJob(ctx context.Context, id uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE upload_jobs SET started_at = COALESCE(started_at, now()),
			status = 'running', error_message = NULL, completed_at = NULL
		WHERE id = $1`, id)
	return err
}

// CompleteUploadJob moves the job to its terminal state.
func (s *Store) CompleteUploadJob(ctx context.Context, id uuid.UUID, errMsg *string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE upload_jobs SET status = 'completed', completed_at = now(), error_message = $2
		WHERE id = $1`, id, errMsg)
	return err
}

// IncrementUploadCounters adds non-negative deltas to the job counters.
func (s *Store) IncrementUploadCounters(ctx context.Context, id uuid.UUID, files, total, snippets int) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE upload_jobs SET
			processed_files = processed_files + $2,
			total_files = total_files + $3,
			snippets_extracted = snippets_extracted + $4
		WHERE id = $1`, id, files, total, snippets)
	return err
}

// TouchUploadHeartbeat writes a monotonic heartbeat.
func (s *Store) TouchUploadHeartbeat(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE upload_jobs SET last_heartbeat = GREATEST(COALESCE(last_heartbeat, 'epoch'::timestamptz), $2)
		WHERE id = $1`, id, at)
	return err
}

// SetUploadConfigKey sets one key in the job's free-form config map.
func (s *Store) SetUploadConfigKey(ctx context.Context, id uuid.UUID, key string, value any) error {
	payload, err := jsonbParam(value)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		UPDATE upload_jobs SET config = jsonb_set(config, ARRAY[$2], $3::jsonb)
		WHERE id = $1`, id, key, payload)
	return err
}

// IncrementUploadRetry bumps retry_count and returns the new value.
func (s *Store) IncrementUploadRetry(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `
		UPDATE upload_jobs SET retry_count = retry_count + 1
		WHERE id = $1 RETURNING retry_count`, id).Scan(&count)
	return count, err
}

// DeleteUploadJob removes the job row; documents and snippets cascade.
func (s *Store) DeleteUploadJob(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM upload_jobs WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
