package ingest

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"docdex/internal/config"
	"docdex/internal/fingerprint"
	"docdex/internal/llm"
	"docdex/internal/model"
	"docdex/internal/snippet"
)

type fakeStore struct {
	docsByURL map[string]*model.Document
	snippets  []*model.CodeSnippet
	upserts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{docsByURL: make(map[string]*model.Document)}
}

func (f *fakeStore) GetDocumentByURL(_ context.Context, url string) (*model.Document, error) {
	if d, ok := f.docsByURL[url]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) UpsertDocument(_ context.Context, d *model.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	copied := *d
	f.docsByURL[d.URL] = &copied
	f.upserts++
	return nil
}

func (f *fakeStore) GetSnippetByHash(_ context.Context, documentID uuid.UUID, codeHash string) (*model.CodeSnippet, error) {
	for _, sn := range f.snippets {
		if sn.DocumentID == documentID && sn.CodeHash == codeHash {
			return sn, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) InsertSnippet(_ context.Context, sn *model.CodeSnippet) (bool, error) {
	if sn.ID == uuid.Nil {
		sn.ID = uuid.New()
	}
	copied := *sn
	f.snippets = append(f.snippets, &copied)
	return true, nil
}

func (f *fakeStore) CountSnippetsByDocument(_ context.Context, documentID uuid.UUID) (int, error) {
	n := 0
	for _, sn := range f.snippets {
		if sn.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

func newTestPipeline(st *fakeStore) *Pipeline {
	return &Pipeline{
		Store:    st,
		Parser:   snippet.NewParser(5, 2),
		Enricher: llm.NewEnricher(config.LLMConfig{MaxConcurrent: 1, RequestTimeoutMs: 1000, MaxAttempts: 1}, slog.New(slog.NewTextHandler(io.Discard, nil))),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

const pageMarkdown = "# Setup\n\nInstall like this:\n\n```bash\npip install docdex\n```\n"

func TestProcessPagePersistsDocumentAndSnippets(t *testing.T) {
	st := newFakeStore()
	p := newTestPipeline(st)
	jobID := uuid.New()

	res, err := p.ProcessPage(context.Background(), Page{
		URL:         "https://docs.test/setup",
		Title:       "Setup",
		Content:     pageMarkdown,
		ContentType: model.ContentTypeMarkdown,
		CrawlJobID:  &jobID,
		SourceType:  model.SourceTypeCrawl,
	})
	if err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	if res.Unchanged {
		t.Error("first ingest marked unchanged")
	}
	if res.Snippets != 1 {
		t.Fatalf("Snippets = %d, want 1", res.Snippets)
	}

	doc := st.docsByURL["https://docs.test/setup"]
	if doc == nil {
		t.Fatal("document not stored")
	}
	if doc.ContentHash != fingerprint.Content(pageMarkdown) {
		t.Error("content hash mismatch")
	}

	sn := st.snippets[0]
	if sn.Language != "bash" {
		t.Errorf("Language = %q", sn.Language)
	}
	// Enrichment is disabled in tests, so the fallback title applies.
	if sn.Title != "Setup" {
		t.Errorf("Title = %q, want section title fallback", sn.Title)
	}
	if sn.CodeHash != fingerprint.Code("pip install docdex") {
		t.Error("code hash mismatch")
	}
}

func TestProcessPageUnchangedSkipsReparse(t *testing.T) {
	st := newFakeStore()
	p := newTestPipeline(st)
	jobID := uuid.New()
	page := Page{
		URL:         "https://docs.test/setup",
		Content:     pageMarkdown,
		ContentType: model.ContentTypeMarkdown,
		CrawlJobID:  &jobID,
		SourceType:  model.SourceTypeCrawl,
	}

	first, err := p.ProcessPage(context.Background(), page)
	if err != nil {
		t.Fatalf("first ProcessPage: %v", err)
	}
	second, err := p.ProcessPage(context.Background(), page)
	if err != nil {
		t.Fatalf("second ProcessPage: %v", err)
	}

	if !second.Unchanged {
		t.Error("identical content not marked unchanged")
	}
	if second.DocumentID != first.DocumentID {
		t.Error("document id changed across ingests")
	}
	if second.Snippets != 1 {
		t.Errorf("Snippets = %d, want the reused count", second.Snippets)
	}
	if st.upserts != 1 {
		t.Errorf("upserts = %d, want 1", st.upserts)
	}
}

func TestProcessPageIgnoreHashReparses(t *testing.T) {
	st := newFakeStore()
	p := newTestPipeline(st)
	jobID := uuid.New()
	page := Page{
		URL:         "https://docs.test/setup",
		Content:     pageMarkdown,
		ContentType: model.ContentTypeMarkdown,
		CrawlJobID:  &jobID,
		SourceType:  model.SourceTypeCrawl,
	}

	if _, err := p.ProcessPage(context.Background(), page); err != nil {
		t.Fatalf("first ProcessPage: %v", err)
	}
	page.IgnoreHash = true
	res, err := p.ProcessPage(context.Background(), page)
	if err != nil {
		t.Fatalf("second ProcessPage: %v", err)
	}
	if res.Unchanged {
		t.Error("ignore_hash ingest marked unchanged")
	}
	if st.upserts != 2 {
		t.Errorf("upserts = %d, want 2", st.upserts)
	}
	// The snippet hash lookup still prevents a duplicate row.
	if res.Snippets != 0 {
		t.Errorf("Snippets = %d, want 0 new", res.Snippets)
	}
}

func TestProcessPageKeepsDocumentIDOnChange(t *testing.T) {
	st := newFakeStore()
	p := newTestPipeline(st)
	jobID := uuid.New()

	first, err := p.ProcessPage(context.Background(), Page{
		URL:         "https://docs.test/setup",
		Content:     pageMarkdown,
		ContentType: model.ContentTypeMarkdown,
		CrawlJobID:  &jobID,
		SourceType:  model.SourceTypeCrawl,
	})
	if err != nil {
		t.Fatalf("first ProcessPage: %v", err)
	}

	second, err := p.ProcessPage(context.Background(), Page{
		URL:         "https://docs.test/setup",
		Content:     pageMarkdown + "\nMore text.\n",
		ContentType: model.ContentTypeMarkdown,
		CrawlJobID:  &jobID,
		SourceType:  model.SourceTypeCrawl,
	})
	if err != nil {
		t.Fatalf("second ProcessPage: %v", err)
	}
	if second.DocumentID != first.DocumentID {
		t.Error("changed content produced a new document id")
	}
}

func TestUploadURLShape(t *testing.T) {
	jobID := uuid.MustParse("0198a3f2-0000-7000-8000-000000000000")
	got := UploadURL(jobID, "/docs/readme.md")
	want := "upload://0198a3f2-0000-7000-8000-000000000000/docs/readme.md"
	if got != want {
		t.Fatalf("UploadURL = %q, want %q", got, want)
	}
}

func TestContentTypeFor(t *testing.T) {
	if contentTypeFor("page.HTML") != model.ContentTypeHTML {
		t.Error("html extension not detected")
	}
	if contentTypeFor("notes.md") != model.ContentTypeMarkdown {
		t.Error("markdown extension not detected")
	}
	if contentTypeFor("plain.txt") != model.ContentTypeMarkdown {
		t.Error("plain text should use the markdown parser")
	}
}
