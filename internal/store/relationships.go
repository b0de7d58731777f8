package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"docdex/internal/model"
)

// CreateRelationship inserts one directed edge. A duplicate
// (source, target, type) triple is a no-op and returns false.
func (s *Store) CreateRelationship(ctx context.Context, rel *model.SnippetRelationship) (bool, error) {
	if rel.ID == uuid.Nil {
		rel.ID = newID()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO snippet_relationships (id, source_snippet_id, target_snippet_id,
			relationship_type, description)
		VALUES ($1, $2, $3, $4, $5)`,
		rel.ID, rel.SourceSnippetID, rel.TargetSnippetID, string(rel.Type), rel.Description)
	if err != nil {
		if IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("create relationship: %w", err)
	}
	return true, nil
}

// FindRelatedSnippets walks the symmetric relationship closure around the
// given snippets. Reverse edges come back with the inverted type name.
// types narrows the edge kinds when non-empty.
func (s *Store) FindRelatedSnippets(ctx context.Context, snippetIDs []uuid.UUID, types []model.RelationshipType, limit int) ([]model.RelatedSnippet, error) {
	if len(snippetIDs) == 0 {
		return nil, nil
	}
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}
	var typesParam any
	if len(typeNames) > 0 {
		typesParam = textArrayLiteral(typeNames)
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT s.id, s.document_id, s.title, s.description, s.language, s.code_content,
			s.code_hash, s.line_start, s.line_end, s.context_before, s.context_after,
			s.section_title, s.section_content, s.functions, s.imports, s.keywords,
			s.snippet_type, s.source_url, s.meta, s.created_at, s.updated_at,
			r.relationship_type, r.description
		FROM find_related_snippets($1::uuid[], $2::text[], $3) r
		JOIN code_snippets s ON s.id = r.related_snippet_id`,
		uuidArrayLiteral(snippetIDs), typesParam, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RelatedSnippet
	for rows.Next() {
		var (
			rel     model.RelatedSnippet
			relType string
			desc    sql.NullString
		)
		sn, err := scanSnippet(rows, &relType, &desc)
		if err != nil {
			return nil, err
		}
		rel.Snippet = *sn
		rel.Type = model.RelationshipType(relType)
		if desc.Valid {
			rel.Description = &desc.String
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}
