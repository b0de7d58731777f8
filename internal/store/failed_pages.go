package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"docdex/internal/model"
)

// RecordCrawlFailure upserts the last error for one URL within a crawl job.
func (s *Store) RecordCrawlFailure(ctx context.Context, crawlJobID uuid.UUID, url, errMsg string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO failed_pages (id, crawl_job_id, url, error)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (crawl_job_id, url) WHERE crawl_job_id IS NOT NULL
		DO UPDATE SET error = EXCLUDED.error, created_at = now()`,
		newID(), crawlJobID, url, errMsg)
	if err != nil {
		return fmt.Errorf("record crawl failure: %w", err)
	}
	return nil
}

// RecordUploadFailure upserts the last error for one file path within an
// upload job.
func (s *Store) RecordUploadFailure(ctx context.Context, uploadJobID uuid.UUID, url, errMsg string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO failed_pages (id, upload_job_id, url, error)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (upload_job_id, url) WHERE upload_job_id IS NOT NULL
		DO UPDATE SET error = EXCLUDED.error, created_at = now()`,
		newID(), uploadJobID, url, errMsg)
	if err != nil {
		return fmt.Errorf("record upload failure: %w", err)
	}
	return nil
}

// ListFailedPages returns every failed page of a crawl or upload job.
func (s *Store) ListFailedPages(ctx context.Context, jobID uuid.UUID) ([]model.FailedPage, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, crawl_job_id, upload_job_id, url, error, created_at
		FROM failed_pages
		WHERE crawl_job_id = $1 OR upload_job_id = $1
		ORDER BY created_at, id`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FailedPage
	for rows.Next() {
		var (
			fp        model.FailedPage
			crawlJob  uuid.NullUUID
			uploadJob uuid.NullUUID
		)
		if err := rows.Scan(&fp.ID, &crawlJob, &uploadJob, &fp.URL, &fp.Error, &fp.CreatedAt); err != nil {
			return nil, err
		}
		if crawlJob.Valid {
			fp.CrawlJobID = &crawlJob.UUID
		}
		if uploadJob.Valid {
			fp.UploadJobID = &uploadJob.UUID
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

// ClearFailedPage removes the failure record for one URL after a successful
// retry. Missing rows are fine.
func (s *Store) ClearFailedPage(ctx context.Context, jobID uuid.UUID, url string) error {
	_, err := s.DB.ExecContext(ctx, `
		DELETE FROM failed_pages
		WHERE (crawl_job_id = $1 OR upload_job_id = $1) AND url = $2`, jobID, url)
	return err
}

// ClearFailedPages removes every failure record of a job, used when a
// recrawl starts fresh.
func (s *Store) ClearFailedPages(ctx context.Context, jobID uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx, `
		DELETE FROM failed_pages
		WHERE crawl_job_id = $1 OR upload_job_id = $1`, jobID)
	return err
}

// CountFailedPages returns how many failure records a job carries.
func (s *Store) CountFailedPages(ctx context.Context, jobID uuid.UUID) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `
		SELECT count(*) FROM failed_pages
		WHERE crawl_job_id = $1 OR upload_job_id = $1`, jobID).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return n, nil
}
