package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docdex/internal/apperr"
	"docdex/internal/model"
	"docdex/internal/store"
)

// SourceStore is the slice of the store the source service needs.
type SourceStore interface {
	ListSources(ctx context.Context, status, jobType, namePattern string, limit, offset int) ([]model.Source, int, error)
	SearchSources(ctx context.Context, query string, limit int) ([]model.Source, error)
	GetSource(ctx context.Context, id uuid.UUID) (*model.Source, error)
	RenameSource(ctx context.Context, id uuid.UUID, name string, version *string) error
	DeleteSource(ctx context.Context, id uuid.UUID) (bool, error)
	ListDocumentsBySource(ctx context.Context, sourceID uuid.UUID, limit, offset int) ([]model.Document, int, error)
	ListSnippetsBySource(ctx context.Context, sourceID uuid.UUID, language string, limit, offset int) ([]model.CodeSnippet, int, error)
	ListLanguagesBySource(ctx context.Context, sourceID uuid.UUID) ([]store.LanguageCount, error)
	DeleteSnippetsMatching(ctx context.Context, sourceID uuid.UUID, pattern string) (int64, error)
	Statistics(ctx context.Context) (*store.Statistics, error)
}

// SourceService manages named documentation corpora.
type SourceService struct {
	store SourceStore
}

func NewSourceService(st SourceStore) *SourceService {
	return &SourceService{store: st}
}

// ListFilter narrows List and DeleteFiltered.
type ListFilter struct {
	Status      string
	JobType     string
	NamePattern string
	Limit       int
	Offset      int
}

func (s *SourceService) List(ctx context.Context, filter ListFilter) ([]model.Source, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.store.ListSources(ctx, filter.Status, filter.JobType, filter.NamePattern, filter.Limit, filter.Offset)
}

func (s *SourceService) Search(ctx context.Context, query string, limit int) ([]model.Source, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("missing_query", "query is required")
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.SearchSources(ctx, query, limit)
}

func (s *SourceService) Get(ctx context.Context, id uuid.UUID) (*model.Source, error) {
	src, err := s.store.GetSource(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NotFound("source_not_found", "no source with id %s", id)
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	return src, nil
}

// Rename changes the (name, version) pair; a collision with an existing
// source is a conflict.
func (s *SourceService) Rename(ctx context.Context, id uuid.UUID, name string, version *string) (*model.Source, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("missing_name", "name is required")
	}
	if err := s.store.RenameSource(ctx, id, name, version); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.Conflict("source_exists", "a source named %q already exists with that version", name)
		}
		if store.IsNotFound(err) {
			return nil, apperr.NotFound("source_not_found", "no source with id %s", id)
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *SourceService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.store.DeleteSource(ctx, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if !deleted {
		return apperr.NotFound("source_not_found", "no source with id %s", id)
	}
	return nil
}

// DeleteBulk removes the given sources, returning how many existed.
func (s *SourceService) DeleteBulk(ctx context.Context, ids []uuid.UUID) (int, error) {
	deleted := 0
	for _, id := range ids {
		ok, err := s.store.DeleteSource(ctx, id)
		if err != nil {
			return deleted, fmt.Errorf("delete source %s: %w", id, err)
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

// DeleteFiltered removes every source matching the filter and returns the
// count.
func (s *SourceService) DeleteFiltered(ctx context.Context, filter ListFilter) (int, error) {
	if filter.Status == "" && filter.JobType == "" && filter.NamePattern == "" {
		return 0, apperr.Validation("missing_filter", "at least one filter is required for bulk deletion")
	}

	deleted := 0
	for {
		sources, _, err := s.store.ListSources(ctx, filter.Status, filter.JobType, filter.NamePattern, 100, 0)
		if err != nil {
			return deleted, fmt.Errorf("list sources: %w", err)
		}
		if len(sources) == 0 {
			return deleted, nil
		}
		for _, src := range sources {
			ok, err := s.store.DeleteSource(ctx, src.ID)
			if err != nil {
				return deleted, fmt.Errorf("delete source %s: %w", src.ID, err)
			}
			if ok {
				deleted++
			}
		}
	}
}

func (s *SourceService) Documents(ctx context.Context, id uuid.UUID, limit, offset int) ([]model.Document, int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListDocumentsBySource(ctx, id, limit, offset)
}

func (s *SourceService) Snippets(ctx context.Context, id uuid.UUID, language string, limit, offset int) ([]model.CodeSnippet, int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListSnippetsBySource(ctx, id, language, limit, offset)
}

func (s *SourceService) Languages(ctx context.Context, id uuid.UUID) ([]store.LanguageCount, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListLanguagesBySource(ctx, id)
}

// DeleteMatchingSnippets removes the source's snippets whose title or code
// contains the pattern.
func (s *SourceService) DeleteMatchingSnippets(ctx context.Context, id uuid.UUID, pattern string) (int64, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return 0, apperr.Validation("missing_pattern", "pattern is required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}
	return s.store.DeleteSnippetsMatching(ctx, id, pattern)
}

// Statistics aggregates corpus-wide counts.
func (s *SourceService) Statistics(ctx context.Context) (*store.Statistics, error) {
	return s.store.Statistics(ctx)
}
