package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"docdex/internal/model"
)

const snippetColumns = `id, document_id, title, description, language, code_content,
	code_hash, line_start, line_end, context_before, context_after,
	section_title, section_content, functions, imports, keywords,
	snippet_type, source_url, meta, created_at, updated_at`

// scanSnippet reads one snippet row; extra receives trailing columns when
// the query selects more than the snippet itself.
func scanSnippet(row rowScanner, extra ...any) (*model.CodeSnippet, error) {
	var (
		sn        model.CodeSnippet
		lineStart sql.NullInt32
		lineEnd   sql.NullInt32
		functions pqtype.NullRawMessage
		imports   pqtype.NullRawMessage
		keywords  pqtype.NullRawMessage
		meta      pqtype.NullRawMessage
	)
	dest := []any{&sn.ID, &sn.DocumentID, &sn.Title, &sn.Description, &sn.Language,
		&sn.CodeContent, &sn.CodeHash, &lineStart, &lineEnd, &sn.ContextBefore,
		&sn.ContextAfter, &sn.SectionTitle, &sn.SectionContent, &functions,
		&imports, &keywords, &sn.SnippetType, &sn.SourceURL, &meta,
		&sn.CreatedAt, &sn.UpdatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if lineStart.Valid {
		v := int(lineStart.Int32)
		sn.LineStart = &v
	}
	if lineEnd.Valid {
		v := int(lineEnd.Int32)
		sn.LineEnd = &v
	}
	var err error
	if sn.Functions, err = scanJSONStrings(functions); err != nil {
		return nil, err
	}
	if sn.Imports, err = scanJSONStrings(imports); err != nil {
		return nil, err
	}
	if sn.Keywords, err = scanJSONStrings(keywords); err != nil {
		return nil, err
	}
	if sn.Meta, err = scanJSONMap(meta); err != nil {
		return nil, err
	}
	return &sn, nil
}

// InsertSnippet persists one snippet. A duplicate (document_id, code_hash)
// is a no-op and returns false; the unique constraint is the concurrency
// control, not a pre-check.
func (s *Store) InsertSnippet(ctx context.Context, sn *model.CodeSnippet) (bool, error) {
	if sn.ID == uuid.Nil {
		sn.ID = newID()
	}
	functions, err := sliceParam(sn.Functions)
	if err != nil {
		return false, err
	}
	imports, err := sliceParam(sn.Imports)
	if err != nil {
		return false, err
	}
	keywords, err := sliceParam(sn.Keywords)
	if err != nil {
		return false, err
	}
	meta, err := mapParam(sn.Meta)
	if err != nil {
		return false, err
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO code_snippets (id, document_id, title, description, language,
			code_content, code_hash, line_start, line_end, context_before, context_after,
			section_title, section_content, functions, imports, keywords,
			snippet_type, source_url, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14::jsonb, $15::jsonb, $16::jsonb, $17, $18, $19::jsonb)`,
		sn.ID, sn.DocumentID, sn.Title, sn.Description, sn.Language,
		sn.CodeContent, sn.CodeHash, sn.LineStart, sn.LineEnd, sn.ContextBefore,
		sn.ContextAfter, sn.SectionTitle, sn.SectionContent, functions, imports,
		keywords, string(sn.SnippetType), sn.SourceURL, meta)
	if err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert snippet: %w", err)
	}
	return true, nil
}

// GetSnippet returns one snippet by id.
func (s *Store) GetSnippet(ctx context.Context, id uuid.UUID) (*model.CodeSnippet, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM code_snippets WHERE id = $1`, id)
	return scanSnippet(row)
}

// GetSnippetByHash returns the snippet with the given code hash inside one
// document. This is the at-most-once lookup the enricher relies on.
func (s *Store) GetSnippetByHash(ctx context.Context, documentID uuid.UUID, codeHash string) (*model.CodeSnippet, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+snippetColumns+` FROM code_snippets
		WHERE document_id = $1 AND code_hash = $2`, documentID, codeHash)
	return scanSnippet(row)
}

// ListSnippetsByDocument returns a document's snippets in insert order,
// which equals parse order.
func (s *Store) ListSnippetsByDocument(ctx context.Context, documentID uuid.UUID) ([]model.CodeSnippet, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+snippetColumns+` FROM code_snippets
		WHERE document_id = $1 ORDER BY created_at, id`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSnippets(rows)
}

// ListSnippetsByDocuments returns the snippets of several documents,
// grouped by document in the order the ids were given.
func (s *Store) ListSnippetsByDocuments(ctx context.Context, documentIDs []uuid.UUID) ([]model.CodeSnippet, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+snippetColumns+` FROM code_snippets
		WHERE document_id = ANY ($1::uuid[])
		ORDER BY array_position($1::uuid[], document_id), created_at, id`,
		uuidArrayLiteral(documentIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSnippets(rows)
}

// ListSnippetsBySource returns a page of a source's snippets plus the total
// count, optionally filtered by language.
func (s *Store) ListSnippetsBySource(ctx context.Context, sourceID uuid.UUID, language string, limit, offset int) ([]model.CodeSnippet, int, error) {
	var total int
	err := s.DB.QueryRowContext(ctx, `
		SELECT count(*) FROM code_snippets s
		JOIN documents d ON d.id = s.document_id
		WHERE (d.crawl_job_id = $1 OR d.upload_job_id = $1)
		  AND ($2 = '' OR s.language = $2)`, sourceID, language).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT s.id, s.document_id, s.title, s.description, s.language, s.code_content,
			s.code_hash, s.line_start, s.line_end, s.context_before, s.context_after,
			s.section_title, s.section_content, s.functions, s.imports, s.keywords,
			s.snippet_type, s.source_url, s.meta, s.created_at, s.updated_at
		FROM code_snippets s
		JOIN documents d ON d.id = s.document_id
		WHERE (d.crawl_job_id = $1 OR d.upload_job_id = $1)
		  AND ($2 = '' OR s.language = $2)
		ORDER BY s.created_at, s.id LIMIT $3 OFFSET $4`,
		sourceID, language, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	snippets, err := collectSnippets(rows)
	return snippets, total, err
}

// CountSnippetsByDocument returns how many snippets a document carries.
func (s *Store) CountSnippetsByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM code_snippets WHERE document_id = $1`, documentID).Scan(&n)
	return n, err
}

// DeleteSnippetsMatching removes a source's snippets whose title or code
// contains the pattern, and returns how many were deleted.
func (s *Store) DeleteSnippetsMatching(ctx context.Context, sourceID uuid.UUID, pattern string) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM code_snippets s
		USING documents d
		WHERE d.id = s.document_id
		  AND (d.crawl_job_id = $1 OR d.upload_job_id = $1)
		  AND (s.title ILIKE '%' || $2 || '%' OR s.code_content ILIKE '%' || $2 || '%')`,
		sourceID, pattern)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// LanguageCount is one language histogram bucket.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// ListLanguagesBySource returns the language histogram of one source.
func (s *Store) ListLanguagesBySource(ctx context.Context, sourceID uuid.UUID) ([]LanguageCount, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT s.language, count(*) FROM code_snippets s
		JOIN documents d ON d.id = s.document_id
		WHERE (d.crawl_job_id = $1 OR d.upload_job_id = $1) AND s.language <> ''
		GROUP BY s.language ORDER BY count(*) DESC, s.language`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LanguageCount
	for rows.Next() {
		var lc LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			return nil, err
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}

func collectSnippets(rows *sql.Rows) ([]model.CodeSnippet, error) {
	var out []model.CodeSnippet
	for rows.Next() {
		sn, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sn)
	}
	return out, rows.Err()
}
