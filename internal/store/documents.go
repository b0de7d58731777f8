package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"docdex/internal/model"
)

const documentColumns = `id, url, title, content_type, content_hash, markdown_content,
	crawl_depth, parent_url, crawl_job_id, upload_job_id, source_type,
	created_at, updated_at`

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d         model.Document
		parentURL sql.NullString
		crawlJob  uuid.NullUUID
		uploadJob uuid.NullUUID
	)
	err := row.Scan(&d.ID, &d.URL, &d.Title, &d.ContentType, &d.ContentHash,
		&d.MarkdownContent, &d.CrawlDepth, &parentURL, &crawlJob, &uploadJob,
		&d.SourceType, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if parentURL.Valid {
		d.ParentURL = &parentURL.String
	}
	if crawlJob.Valid {
		d.CrawlJobID = &crawlJob.UUID
	}
	if uploadJob.Valid {
		d.UploadJobID = &uploadJob.UUID
	}
	return &d, nil
}

// UpsertDocument inserts the document or, when the URL already exists,
// replaces its content and ownership. The returned id is the row's id in
// both cases.
func (s *Store) UpsertDocument(ctx context.Context, d *model.Document) error {
	if d.ID == uuid.Nil {
		d.ID = newID()
	}
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO documents (id, url, title, content_type, content_hash, markdown_content,
			crawl_depth, parent_url, crawl_job_id, upload_job_id, source_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			content_type = EXCLUDED.content_type,
			content_hash = EXCLUDED.content_hash,
			markdown_content = EXCLUDED.markdown_content,
			crawl_depth = EXCLUDED.crawl_depth,
			parent_url = EXCLUDED.parent_url,
			crawl_job_id = EXCLUDED.crawl_job_id,
			upload_job_id = EXCLUDED.upload_job_id,
			source_type = EXCLUDED.source_type
		RETURNING id`,
		d.ID, d.URL, d.Title, string(d.ContentType), d.ContentHash, d.MarkdownContent,
		d.CrawlDepth, d.ParentURL, d.CrawlJobID, d.UploadJobID, string(d.SourceType),
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// GetDocument returns one document by id, including its body.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// GetDocumentByURL returns one document by its globally unique URL.
func (s *Store) GetDocumentByURL(ctx context.Context, url string) (*model.Document, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE url = $1`, url)
	return scanDocument(row)
}

// ListDocumentsBySource returns a page of the source's documents (bodies
// omitted) and the total count. sourceID is a crawl or upload job id.
func (s *Store) ListDocumentsBySource(ctx context.Context, sourceID uuid.UUID, limit, offset int) ([]model.Document, int, error) {
	var total int
	err := s.DB.QueryRowContext(ctx, `
		SELECT count(*) FROM documents
		WHERE crawl_job_id = $1 OR upload_job_id = $1`, sourceID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, url, title, content_type, content_hash, '' AS markdown_content,
			crawl_depth, parent_url, crawl_job_id, upload_job_id, source_type,
			created_at, updated_at
		FROM documents
		WHERE crawl_job_id = $1 OR upload_job_id = $1
		ORDER BY created_at, id LIMIT $2 OFFSET $3`, sourceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, *d)
	}
	return docs, total, rows.Err()
}

// DocumentHit is one markdown full-text match.
type DocumentHit struct {
	Document model.Document
	Rank     float64
}

// SearchDocuments runs the markdown full-text query used by the search
// fallback and the document search endpoint. sourceID narrows the match to
// one source when non-nil.
func (s *Store) SearchDocuments(ctx context.Context, sourceID *uuid.UUID, query string, limit int) ([]DocumentHit, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+documentColumns+`,
			ts_rank(markdown_search_vector, websearch_to_tsquery('english', $2)) AS rank
		FROM documents
		WHERE markdown_search_vector @@ websearch_to_tsquery('english', $2)
		  AND ($1::uuid IS NULL OR crawl_job_id = $1 OR upload_job_id = $1)
		ORDER BY rank DESC, id ASC
		LIMIT $3`, sourceID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []DocumentHit
	for rows.Next() {
		var (
			d         model.Document
			parentURL sql.NullString
			crawlJob  uuid.NullUUID
			uploadJob uuid.NullUUID
			rank      float64
		)
		err := rows.Scan(&d.ID, &d.URL, &d.Title, &d.ContentType, &d.ContentHash,
			&d.MarkdownContent, &d.CrawlDepth, &parentURL, &crawlJob, &uploadJob,
			&d.SourceType, &d.CreatedAt, &d.UpdatedAt, &rank)
		if err != nil {
			return nil, err
		}
		if parentURL.Valid {
			d.ParentURL = &parentURL.String
		}
		if crawlJob.Valid {
			d.CrawlJobID = &crawlJob.UUID
		}
		if uploadJob.Valid {
			d.UploadJobID = &uploadJob.UUID
		}
		hits = append(hits, DocumentHit{Document: d, Rank: rank})
	}
	return hits, rows.Err()
}
