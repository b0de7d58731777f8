package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"docdex/internal/model"
)

// sourceColumns reads the source_statistics view; languages comes back as
// jsonb so database/sql can scan a text[] without a driver-specific type.
const sourceColumns = `id, name, version, job_type, status, document_count,
	snippet_count, to_jsonb(languages), created_at, last_updated_at`

func scanSource(row rowScanner) (*model.Source, error) {
	var (
		src       model.Source
		version   sql.NullString
		languages pqtype.NullRawMessage
	)
	err := row.Scan(&src.ID, &src.Name, &version, &src.JobType, &src.Status,
		&src.DocumentCount, &src.SnippetCount, &languages, &src.CreatedAt,
		&src.LastUpdatedAt)
	if err != nil {
		return nil, err
	}
	if version.Valid {
		src.Version = &version.String
	}
	if languages.Valid && string(languages.RawMessage) != "null" {
		if err := json.Unmarshal(languages.RawMessage, &src.Languages); err != nil {
			return nil, fmt.Errorf("decode languages: %w", err)
		}
	}
	return &src, nil
}

// ListSources returns a page of visible sources plus the total count,
// optionally filtered by job status, job type, and a name substring.
func (s *Store) ListSources(ctx context.Context, status, jobType, namePattern string, limit, offset int) ([]model.Source, int, error) {
	const filter = `
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR job_type = $2)
		  AND ($3 = '' OR name ILIKE '%' || $3 || '%')`

	var total int
	err := s.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM source_statistics`+filter,
		status, jobType, namePattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM source_statistics`+filter+`
		ORDER BY name, COALESCE(version, ''), id LIMIT $4 OFFSET $5`,
		status, jobType, namePattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sources, err := collectSources(rows)
	return sources, total, err
}

// GetSource returns one source by job id.
func (s *Store) GetSource(ctx context.Context, id uuid.UUID) (*model.Source, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM source_statistics WHERE id = $1`, id)
	return scanSource(row)
}

// SearchSources resolves a library name: exact matches first, then prefix
// matches, then trigram-similar names.
func (s *Store) SearchSources(ctx context.Context, query string, limit int) ([]model.Source, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+sourceColumns+` FROM source_statistics
		WHERE lower(name) = lower($1)
		   OR lower(name) LIKE lower($1) || '%'
		   OR similarity(name, $1) > 0.3
		ORDER BY (lower(name) = lower($1)) DESC,
			(lower(name) LIKE lower($1) || '%') DESC,
			similarity(name, $1) DESC,
			name, COALESCE(version, '')
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSources(rows)
}

// RenameSource updates the (name, version) pair of whichever job table holds
// the id. The unique index rejects a collision with an existing source.
func (s *Store) RenameSource(ctx context.Context, id uuid.UUID, name string, version *string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE crawl_jobs SET name = $2, version = $3 WHERE id = $1`,
		id, name, version)
	if err != nil {
		return fmt.Errorf("rename source: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	res, err = s.DB.ExecContext(ctx,
		`UPDATE upload_jobs SET name = $2, version = $3 WHERE id = $1`,
		id, name, version)
	if err != nil {
		return fmt.Errorf("rename source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteSource removes the job behind a source; documents, snippets, and
// failure records cascade. Returns false when the id matches neither table.
func (s *Store) DeleteSource(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM crawl_jobs WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	res, err = s.DB.ExecContext(ctx, `DELETE FROM upload_jobs WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Statistics is the corpus-wide aggregate.
type Statistics struct {
	Sources       int             `json:"sources"`
	Documents     int             `json:"documents"`
	Snippets      int             `json:"snippets"`
	RunningJobs   int             `json:"running_jobs"`
	CompletedJobs int             `json:"completed_jobs"`
	Languages     []LanguageCount `json:"languages,omitempty"`
}

// Statistics aggregates counts over the whole corpus, including the global
// language histogram.
func (s *Store) Statistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	err := s.DB.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM source_statistics),
			(SELECT count(*) FROM documents),
			(SELECT count(*) FROM code_snippets),
			(SELECT count(*) FROM crawl_jobs WHERE status = 'running') +
				(SELECT count(*) FROM upload_jobs WHERE status = 'running'),
			(SELECT count(*) FROM crawl_jobs WHERE status = 'completed') +
				(SELECT count(*) FROM upload_jobs WHERE status = 'completed')`).
		Scan(&stats.Sources, &stats.Documents, &stats.Snippets,
			&stats.RunningJobs, &stats.CompletedJobs)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT language, count(*) FROM code_snippets
		WHERE language <> ''
		GROUP BY language ORDER BY count(*) DESC, language`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var lc LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			return nil, err
		}
		stats.Languages = append(stats.Languages, lc)
	}
	return &stats, rows.Err()
}

func collectSources(rows *sql.Rows) ([]model.Source, error) {
	var out []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *src)
	}
	return out, rows.Err()
}
