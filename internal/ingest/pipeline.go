// Package ingest turns raw page or file content into persisted documents
// and enriched snippets. The crawl driver and the upload paths share one
// Pipeline so the extraction and enrichment semantics never diverge.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"docdex/internal/fingerprint"
	"docdex/internal/llm"
	"docdex/internal/metrics"
	"docdex/internal/model"
	"docdex/internal/snippet"
	"docdex/internal/store"
)

// PipelineStore is the slice of the store the pipeline needs.
type PipelineStore interface {
	GetDocumentByURL(ctx context.Context, url string) (*model.Document, error)
	UpsertDocument(ctx context.Context, d *model.Document) error
	GetSnippetByHash(ctx context.Context, documentID uuid.UUID, codeHash string) (*model.CodeSnippet, error)
	InsertSnippet(ctx context.Context, sn *model.CodeSnippet) (bool, error)
	CountSnippetsByDocument(ctx context.Context, documentID uuid.UUID) (int, error)
}

// Pipeline is the shared parse-enrich-persist path.
type Pipeline struct {
	Store    PipelineStore
	Parser   *snippet.Parser
	Enricher *llm.Enricher
	Logger   *slog.Logger
}

// Page is one unit of ingestable content.
type Page struct {
	URL         string
	Title       string
	Content     string
	ContentType model.ContentType
	CrawlDepth  int
	ParentURL   *string
	CrawlJobID  *uuid.UUID
	UploadJobID *uuid.UUID
	SourceType  model.SourceType
	// IgnoreHash forces re-extraction even when the stored document
	// carries the same content hash.
	IgnoreHash bool
}

// Result summarizes one processed page.
type Result struct {
	DocumentID uuid.UUID
	Snippets   int
	// Unchanged means the stored document already carried this content
	// hash and its snippets were reused.
	Unchanged bool
}

// ProcessPage persists the page and its snippets. Enrichment runs at most
// once per (document, code hash); snippets already present are left alone.
// Cancellation is observed between enrichments.
func (p *Pipeline) ProcessPage(ctx context.Context, page Page) (Result, error) {
	contentHash := fingerprint.Content(page.Content)

	existing, err := p.Store.GetDocumentByURL(ctx, page.URL)
	if err != nil && !store.IsNotFound(err) {
		return Result{}, fmt.Errorf("lookup document: %w", err)
	}
	if existing != nil && !page.IgnoreHash && existing.ContentHash == contentHash {
		count, err := p.Store.CountSnippetsByDocument(ctx, existing.ID)
		if err != nil {
			return Result{}, fmt.Errorf("count snippets: %w", err)
		}
		return Result{DocumentID: existing.ID, Snippets: count, Unchanged: true}, nil
	}

	doc := &model.Document{
		URL:             page.URL,
		Title:           page.Title,
		ContentType:     page.ContentType,
		ContentHash:     contentHash,
		MarkdownContent: page.Content,
		CrawlDepth:      page.CrawlDepth,
		ParentURL:       page.ParentURL,
		CrawlJobID:      page.CrawlJobID,
		UploadJobID:     page.UploadJobID,
		SourceType:      page.SourceType,
	}
	if doc.Title == "" {
		doc.Title = page.URL
	}
	if existing != nil {
		doc.ID = existing.ID
	}
	if err := p.Store.UpsertDocument(ctx, doc); err != nil {
		return Result{}, err
	}

	candidates := p.Parser.Parse(page.ContentType, page.Content)
	inserted := 0
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{DocumentID: doc.ID, Snippets: inserted}, err
		}
		ok, err := p.processCandidate(ctx, doc, cand)
		if err != nil {
			return Result{DocumentID: doc.ID, Snippets: inserted}, err
		}
		if ok {
			inserted++
		}
	}
	metrics.RecordIngest(1, inserted)
	return Result{DocumentID: doc.ID, Snippets: inserted}, nil
}

func (p *Pipeline) processCandidate(ctx context.Context, doc *model.Document, cand snippet.Candidate) (bool, error) {
	codeHash := fingerprint.Code(cand.Code)

	existing, err := p.Store.GetSnippetByHash(ctx, doc.ID, codeHash)
	if err != nil && !store.IsNotFound(err) {
		return false, fmt.Errorf("lookup snippet: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	enriched := p.Enricher.Enrich(ctx, llm.Request{
		Code:           cand.Code,
		LanguageHint:   cand.Language,
		SectionTitle:   cand.SectionTitle,
		SectionContent: cand.SectionContent,
		Context:        strings.TrimSpace(cand.ContextBefore + "\n" + cand.ContextAfter),
	})

	snippetType := enriched.SnippetType
	if snippetType == model.SnippetTypeCode {
		// The heuristic classifier often beats a generic "code" verdict.
		snippetType = snippet.Classify(enriched.Language, cand.Code, cand.SectionTitle)
	}

	sn := &model.CodeSnippet{
		DocumentID:     doc.ID,
		Title:          enriched.Title,
		Description:    enriched.Description,
		Language:       enriched.Language,
		CodeContent:    cand.Code,
		CodeHash:       codeHash,
		LineStart:      cand.LineStart,
		LineEnd:        cand.LineEnd,
		ContextBefore:  cand.ContextBefore,
		ContextAfter:   cand.ContextAfter,
		SectionTitle:   cand.SectionTitle,
		SectionContent: cand.SectionContent,
		Functions:      enriched.Functions,
		Imports:        enriched.Imports,
		Keywords:       enriched.Keywords,
		SnippetType:    snippetType,
		SourceURL:      doc.URL,
	}
	inserted, err := p.Store.InsertSnippet(ctx, sn)
	if err != nil {
		return false, err
	}
	if !inserted {
		p.Logger.Debug("snippet already present", "document_id", doc.ID, "code_hash", codeHash)
	}
	return inserted, nil
}
