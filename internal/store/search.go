package store

import (
	"context"

	"github.com/google/uuid"

	"docdex/internal/model"
)

// SearchSnippets runs the primary snippet full-text query through the
// search_code_snippets SQL function and hydrates full rows. sourceID and
// language narrow the match when set.
func (s *Store) SearchSnippets(ctx context.Context, query string, sourceID *uuid.UUID, language string, limit, offset int) ([]model.SnippetHit, error) {
	var langParam any
	if language != "" {
		langParam = language
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT s.id, s.document_id, s.title, s.description, s.language, s.code_content,
			s.code_hash, s.line_start, s.line_end, s.context_before, s.context_after,
			s.section_title, s.section_content, s.functions, s.imports, s.keywords,
			s.snippet_type, s.source_url, s.meta, s.created_at, s.updated_at,
			h.document_title, h.rank
		FROM search_code_snippets($1, $2::uuid, $3::text, $4, $5) h
		JOIN code_snippets s ON s.id = h.snippet_id
		ORDER BY h.rank DESC, s.created_at DESC, s.id ASC`,
		query, sourceID, langParam, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []model.SnippetHit
	for rows.Next() {
		var (
			title string
			rank  float64
		)
		sn, err := scanSnippet(rows, &title, &rank)
		if err != nil {
			return nil, err
		}
		hits = append(hits, model.SnippetHit{
			Snippet:       *sn,
			DocumentTitle: title,
			Rank:          rank,
		})
	}
	return hits, rows.Err()
}
