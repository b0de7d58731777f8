// Package services holds the transport-independent application logic shared
// by the HTTP handlers and the MCP tools.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docdex/internal/apperr"
	"docdex/internal/config"
	"docdex/internal/metrics"
	"docdex/internal/model"
	"docdex/internal/store"
)

// SearchStore is the slice of the store the searcher needs.
type SearchStore interface {
	ListSources(ctx context.Context, status, jobType, namePattern string, limit, offset int) ([]model.Source, int, error)
	SearchSources(ctx context.Context, query string, limit int) ([]model.Source, error)
	GetSource(ctx context.Context, id uuid.UUID) (*model.Source, error)
	SearchSnippets(ctx context.Context, query string, sourceID *uuid.UUID, language string, limit, offset int) ([]model.SnippetHit, error)
	SearchDocuments(ctx context.Context, sourceID *uuid.UUID, query string, limit int) ([]store.DocumentHit, error)
	ListSnippetsByDocuments(ctx context.Context, documentIDs []uuid.UUID) ([]model.CodeSnippet, error)
}

// SearchService resolves libraries and runs content search with the
// markdown fallback.
type SearchService struct {
	store SearchStore
	cfg   config.SearchConfig
}

func NewSearchService(st SearchStore, cfg config.SearchConfig) *SearchService {
	return &SearchService{store: st, cfg: cfg}
}

// LibrariesRequest asks for sources matching a query, paged.
type LibrariesRequest struct {
	Query string
	Limit int
	Page  int
}

// LibrariesResult carries one result page and the total match count.
type LibrariesResult struct {
	Sources []model.Source
	Total   int
}

// clampPage normalizes limit/page against the configured bounds and returns
// the offset.
func (s *SearchService) clampPage(limit, page int) (int, int) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// Libraries lists or fuzzily resolves sources: exact match first, then
// prefix, then trigram similarity.
func (s *SearchService) Libraries(ctx context.Context, req LibrariesRequest) (*LibrariesResult, error) {
	limit, offset := s.clampPage(req.Limit, req.Page)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		sources, total, err := s.store.ListSources(ctx, "", "", "", limit, offset)
		if err != nil {
			return nil, fmt.Errorf("list sources: %w", err)
		}
		return &LibrariesResult{Sources: sources, Total: total}, nil
	}

	matches, err := s.store.SearchSources(ctx, query, offset+limit)
	if err != nil {
		return nil, fmt.Errorf("search sources: %w", err)
	}
	total := len(matches)
	if offset >= len(matches) {
		return &LibrariesResult{Total: total}, nil
	}
	return &LibrariesResult{Sources: matches[offset:], Total: total}, nil
}

// ResolveSource turns a library identifier, either a job id or a name, into
// one source.
func (s *SearchService) ResolveSource(ctx context.Context, libraryID string) (*model.Source, error) {
	libraryID = strings.TrimSpace(libraryID)
	if libraryID == "" {
		return nil, apperr.Validation("missing_library", "library identifier is required")
	}

	if id, err := uuid.Parse(libraryID); err == nil {
		src, err := s.store.GetSource(ctx, id)
		if err != nil {
			if store.IsNotFound(err) {
				return nil, apperr.NotFound("source_not_found", "no source with id %s", libraryID)
			}
			return nil, fmt.Errorf("get source: %w", err)
		}
		return src, nil
	}

	matches, err := s.store.SearchSources(ctx, libraryID, 1)
	if err != nil {
		return nil, fmt.Errorf("search sources: %w", err)
	}
	if len(matches) == 0 {
		return nil, apperr.NotFound("source_not_found", "no source matches %q", libraryID)
	}
	return &matches[0], nil
}

// ContentRequest is one content search within a source.
type ContentRequest struct {
	LibraryID string
	Query     string
	Language  string
	Mode      model.SearchMode
	Limit     int
	Page      int
}

// ContentResult carries ranked snippet hits; fallback hits sort below every
// primary hit and carry FoundViaDocs.
type ContentResult struct {
	Source   *model.Source
	Snippets []model.SnippetHit
}

// Content runs the two-stage search: weighted snippet FTS first, then the
// markdown-document fallback when the mode asks for it.
func (s *SearchService) Content(ctx context.Context, req ContentRequest) (*ContentResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperr.Validation("missing_query", "query is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = model.SearchModeCode
	}
	if mode != model.SearchModeCode && mode != model.SearchModeEnhanced {
		return nil, apperr.Validation("invalid_mode", "search_mode must be code or enhanced")
	}

	source, err := s.ResolveSource(ctx, req.LibraryID)
	if err != nil {
		return nil, err
	}

	limit, offset := s.clampPage(req.Limit, req.Page)
	primary, err := s.store.SearchSnippets(ctx, req.Query, &source.ID, req.Language, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search snippets: %w", err)
	}

	runFallback := mode == model.SearchModeEnhanced ||
		(mode == model.SearchModeCode && len(primary) < s.cfg.FallbackThreshold)
	if !runFallback {
		metrics.RecordSearch(string(mode), false, len(primary))
		return &ContentResult{Source: source, Snippets: primary}, nil
	}

	fallback, err := s.fallbackHits(ctx, source.ID, req.Query, req.Language, primary)
	if err != nil {
		return nil, err
	}

	merged := append(primary, fallback...)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	metrics.RecordSearch(string(mode), true, len(merged))
	return &ContentResult{Source: source, Snippets: merged}, nil
}

// fallbackHits searches the source's markdown bodies and surfaces the
// snippets of matching documents, excluding anything the primary stage
// already returned.
func (s *SearchService) fallbackHits(ctx context.Context, sourceID uuid.UUID, query, language string, primary []model.SnippetHit) ([]model.SnippetHit, error) {
	docHits, err := s.store.SearchDocuments(ctx, &sourceID, query, s.cfg.FallbackDocLimit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	if len(docHits) == 0 {
		return nil, nil
	}

	docIDs := make([]uuid.UUID, len(docHits))
	titles := make(map[uuid.UUID]string, len(docHits))
	for i, hit := range docHits {
		docIDs[i] = hit.Document.ID
		titles[hit.Document.ID] = hit.Document.Title
	}

	snippets, err := s.store.ListSnippetsByDocuments(ctx, docIDs)
	if err != nil {
		return nil, fmt.Errorf("load fallback snippets: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(primary))
	for _, hit := range primary {
		seen[hit.Snippet.ID] = struct{}{}
	}

	var out []model.SnippetHit
	for _, sn := range snippets {
		if _, dup := seen[sn.ID]; dup {
			continue
		}
		if language != "" && sn.Language != language {
			continue
		}
		out = append(out, model.SnippetHit{
			Snippet:       sn,
			DocumentTitle: titles[sn.DocumentID],
			FoundViaDocs:  true,
		})
	}
	return out, nil
}
