package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docdex/internal/apperr"
	"docdex/internal/config"
	"docdex/internal/model"
	"docdex/internal/store"
	"docdex/internal/textutil"
)

// excerptRadius is how many characters surround each highlighted match.
const excerptRadius = 200

// DocumentStore is the slice of the store the document service needs.
type DocumentStore interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
	GetDocumentByURL(ctx context.Context, url string) (*model.Document, error)
	GetSnippet(ctx context.Context, id uuid.UUID) (*model.CodeSnippet, error)
	ListSnippetsByDocument(ctx context.Context, documentID uuid.UUID) ([]model.CodeSnippet, error)
	FindRelatedSnippets(ctx context.Context, snippetIDs []uuid.UUID, types []model.RelationshipType, limit int) ([]model.RelatedSnippet, error)
	SearchDocuments(ctx context.Context, sourceID *uuid.UUID, query string, limit int) ([]store.DocumentHit, error)
}

// DocumentService serves page markdown, snippets, and their relationships.
type DocumentService struct {
	store DocumentStore
	cfg   config.SearchConfig
}

func NewDocumentService(st DocumentStore, cfg config.SearchConfig) *DocumentService {
	return &DocumentService{store: st, cfg: cfg}
}

// ChunkMeta describes which slice of an oversize body was returned.
type ChunkMeta struct {
	ChunkIndex  int  `json:"chunk_index"`
	TotalChunks int  `json:"total_chunks"`
	Chunked     bool `json:"chunked"`
}

// PageMarkdownRequest fetches one document body by URL or by the id of a
// snippet extracted from it.
type PageMarkdownRequest struct {
	URL       string
	SnippetID *uuid.UUID
	Query     string
	MaxTokens int
	// ChunkIndex selects one chunk of an oversize body, zero-based.
	ChunkIndex int
}

// PageMarkdownResult is the body (or one chunk of it) plus metadata.
type PageMarkdownResult struct {
	Document *model.Document
	Markdown string
	// Excerpt holds highlighted windows around query matches, empty when
	// no query was given.
	Excerpt string
	Chunk   ChunkMeta
}

// PageMarkdown returns a document's markdown, chunked by the approximate
// token budget and optionally excerpted around query matches.
func (s *DocumentService) PageMarkdown(ctx context.Context, req PageMarkdownRequest) (*PageMarkdownResult, error) {
	doc, err := s.resolveDocument(ctx, req)
	if err != nil {
		return nil, err
	}

	chunk, total, err := textutil.Chunk(doc.MarkdownContent, req.MaxTokens, req.ChunkIndex)
	if err != nil {
		return nil, apperr.Validation("invalid_chunk", "chunk_index %d is out of range", req.ChunkIndex)
	}

	result := &PageMarkdownResult{
		Document: doc,
		Markdown: chunk,
		Chunk: ChunkMeta{
			ChunkIndex:  req.ChunkIndex,
			TotalChunks: total,
			Chunked:     total > 1,
		},
	}
	if query := strings.TrimSpace(req.Query); query != "" {
		result.Excerpt = textutil.Excerpt(doc.MarkdownContent, query, excerptRadius)
	}
	return result, nil
}

func (s *DocumentService) resolveDocument(ctx context.Context, req PageMarkdownRequest) (*model.Document, error) {
	switch {
	case req.SnippetID != nil:
		sn, err := s.store.GetSnippet(ctx, *req.SnippetID)
		if err != nil {
			if store.IsNotFound(err) {
				return nil, apperr.NotFound("snippet_not_found", "no snippet with id %s", req.SnippetID)
			}
			return nil, fmt.Errorf("get snippet: %w", err)
		}
		doc, err := s.store.GetDocument(ctx, sn.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("get snippet document: %w", err)
		}
		return doc, nil
	case strings.TrimSpace(req.URL) != "":
		doc, err := s.store.GetDocumentByURL(ctx, strings.TrimSpace(req.URL))
		if err != nil {
			if store.IsNotFound(err) {
				return nil, apperr.NotFound("document_not_found", "no document with url %q", req.URL)
			}
			return nil, fmt.Errorf("get document: %w", err)
		}
		return doc, nil
	default:
		return nil, apperr.Validation("missing_target", "url or snippet_id is required")
	}
}

// SnippetResult is one snippet with chunking metadata over its code.
type SnippetResult struct {
	Snippet *model.CodeSnippet
	Code    string
	Chunk   ChunkMeta
}

// Snippet returns one snippet, chunking its code by the token budget.
func (s *DocumentService) Snippet(ctx context.Context, id uuid.UUID, maxTokens, chunkIndex int) (*SnippetResult, error) {
	sn, err := s.store.GetSnippet(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NotFound("snippet_not_found", "no snippet with id %s", id)
		}
		return nil, fmt.Errorf("get snippet: %w", err)
	}

	chunk, total, err := textutil.Chunk(sn.CodeContent, maxTokens, chunkIndex)
	if err != nil {
		return nil, apperr.Validation("invalid_chunk", "chunk_index %d is out of range", chunkIndex)
	}
	return &SnippetResult{
		Snippet: sn,
		Code:    chunk,
		Chunk: ChunkMeta{
			ChunkIndex:  chunkIndex,
			TotalChunks: total,
			Chunked:     total > 1,
		},
	}, nil
}

// DocumentSnippets lists a document's snippets in parse order.
func (s *DocumentService) DocumentSnippets(ctx context.Context, documentID uuid.UUID) ([]model.CodeSnippet, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NotFound("document_not_found", "no document with id %s", documentID)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return s.store.ListSnippetsByDocument(ctx, documentID)
}

// Related walks the relationship closure around one snippet.
func (s *DocumentService) Related(ctx context.Context, snippetID uuid.UUID, types []model.RelationshipType, limit int) ([]model.RelatedSnippet, error) {
	if _, err := s.store.GetSnippet(ctx, snippetID); err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NotFound("snippet_not_found", "no snippet with id %s", snippetID)
		}
		return nil, fmt.Errorf("get snippet: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}
	return s.store.FindRelatedSnippets(ctx, []uuid.UUID{snippetID}, types, limit)
}

// SearchDocuments runs markdown full-text search, optionally within one
// source.
func (s *DocumentService) SearchDocuments(ctx context.Context, sourceID *uuid.UUID, query string, limit int) ([]store.DocumentHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("missing_query", "query is required")
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return s.store.SearchDocuments(ctx, sourceID, query, limit)
}
