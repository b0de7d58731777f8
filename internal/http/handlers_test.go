package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"docdex/internal/config"
	"docdex/internal/model"
	"docdex/internal/progress"
	"docdex/internal/services"
	"docdex/internal/store"
)

// fakeStore backs the search, source, and document services in handler
// tests. Ingestion routes need the SQL store and are covered at the service
// layer instead.
type fakeStore struct {
	sources  []model.Source
	snippets map[uuid.UUID]model.CodeSnippet
	docs     map[uuid.UUID]model.Document
	hits     []model.SnippetHit
}

func (f *fakeStore) ListSources(ctx context.Context, status, jobType, namePattern string, limit, offset int) ([]model.Source, int, error) {
	return f.sources, len(f.sources), nil
}

func (f *fakeStore) SearchSources(ctx context.Context, query string, limit int) ([]model.Source, error) {
	var out []model.Source
	for _, src := range f.sources {
		if src.Name == query {
			out = append(out, src)
		}
	}
	return out, nil
}

func (f *fakeStore) GetSource(ctx context.Context, id uuid.UUID) (*model.Source, error) {
	for i := range f.sources {
		if f.sources[i].ID == id {
			return &f.sources[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) RenameSource(ctx context.Context, id uuid.UUID, name string, version *string) error {
	return sql.ErrNoRows
}

func (f *fakeStore) DeleteSource(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeStore) ListDocumentsBySource(ctx context.Context, sourceID uuid.UUID, limit, offset int) ([]model.Document, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) ListSnippetsBySource(ctx context.Context, sourceID uuid.UUID, language string, limit, offset int) ([]model.CodeSnippet, int, error) {
	return nil, 0, nil
}

func (f *fakeStore) ListLanguagesBySource(ctx context.Context, sourceID uuid.UUID) ([]store.LanguageCount, error) {
	return []store.LanguageCount{{Language: "go", Count: 3}}, nil
}

func (f *fakeStore) DeleteSnippetsMatching(ctx context.Context, sourceID uuid.UUID, pattern string) (int64, error) {
	return 0, nil
}

func (f *fakeStore) Statistics(ctx context.Context) (*store.Statistics, error) {
	return &store.Statistics{Sources: len(f.sources)}, nil
}

func (f *fakeStore) SearchSnippets(ctx context.Context, query string, sourceID *uuid.UUID, language string, limit, offset int) ([]model.SnippetHit, error) {
	return f.hits, nil
}

func (f *fakeStore) SearchDocuments(ctx context.Context, sourceID *uuid.UUID, query string, limit int) ([]store.DocumentHit, error) {
	return nil, nil
}

func (f *fakeStore) ListSnippetsByDocuments(ctx context.Context, documentIDs []uuid.UUID) ([]model.CodeSnippet, error) {
	return nil, nil
}

func (f *fakeStore) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	if doc, ok := f.docs[id]; ok {
		return &doc, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetDocumentByURL(ctx context.Context, url string) (*model.Document, error) {
	for _, doc := range f.docs {
		if doc.URL == url {
			return &doc, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetSnippet(ctx context.Context, id uuid.UUID) (*model.CodeSnippet, error) {
	if sn, ok := f.snippets[id]; ok {
		return &sn, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) ListSnippetsByDocument(ctx context.Context, documentID uuid.UUID) ([]model.CodeSnippet, error) {
	return nil, nil
}

func (f *fakeStore) FindRelatedSnippets(ctx context.Context, snippetIDs []uuid.UUID, types []model.RelationshipType, limit int) ([]model.RelatedSnippet, error) {
	return nil, nil
}

func testServer(t *testing.T, fs *fakeStore) *Server {
	t.Helper()
	cfg := config.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := Services{
		Search:    services.NewSearchService(fs, cfg.Search),
		Sources:   services.NewSourceService(fs),
		Documents: services.NewDocumentService(fs, cfg.Search),
		Ingestion: services.NewIngestionService(nil, nil, nil, cfg),
	}
	return NewServer(cfg, &store.Store{}, svc, progress.NewBus(), logger, nil)
}

func TestHealthShallow(t *testing.T) {
	srv := testServer(t, &fakeStore{})
	req := httptest.NewRequest(nethttp.MethodGet, "/healthz", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv := testServer(t, &fakeStore{})
	req := httptest.NewRequest(nethttp.MethodGet, "/api/sources/not-a-uuid", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code != "INVALID_ID" || body.Detail == "" {
		t.Fatalf("envelope = %+v", body)
	}
}

func TestSearchEndpoint(t *testing.T) {
	src := model.Source{ID: uuid.New(), Name: "fiber"}
	hit := model.SnippetHit{
		Snippet:       model.CodeSnippet{ID: uuid.New(), Language: "go"},
		DocumentTitle: "Routing",
		Rank:          0.9,
	}
	srv := testServer(t, &fakeStore{sources: []model.Source{src}, hits: []model.SnippetHit{hit}})

	req := httptest.NewRequest(nethttp.MethodGet, "/api/search?library_id="+src.ID.String()+"&query=routing", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Snippets []model.SnippetHit `json:"snippets"`
		Total    int                `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || len(body.Snippets) != 1 {
		t.Fatalf("body = %+v", body)
	}
	if body.Snippets[0].DocumentTitle != "Routing" {
		t.Errorf("document title = %q", body.Snippets[0].DocumentTitle)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	srv := testServer(t, &fakeStore{})
	req := httptest.NewRequest(nethttp.MethodGet, "/api/search?library_id=x", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestUploadConfigEndpoint(t *testing.T) {
	srv := testServer(t, &fakeStore{})
	req := httptest.NewRequest(nethttp.MethodGet, "/api/upload/config", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var limits services.UploadLimits
	if err := json.NewDecoder(resp.Body).Decode(&limits); err != nil {
		t.Fatal(err)
	}
	if limits.MaxFiles <= 0 || limits.MaxFileSizeBytes <= 0 {
		t.Fatalf("limits = %+v", limits)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, &fakeStore{})
	req := httptest.NewRequest(nethttp.MethodGet, "/metrics", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Fatal("empty metrics body")
	}
}

func TestMCPBearerAuth(t *testing.T) {
	cfg := config.Default()
	cfg.MCP.Enabled = true
	cfg.MCP.AuthToken = "secret"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fs := &fakeStore{}
	svc := Services{
		Search:    services.NewSearchService(fs, cfg.Search),
		Sources:   services.NewSourceService(fs),
		Documents: services.NewDocumentService(fs, cfg.Search),
		Ingestion: services.NewIngestionService(nil, nil, nil, cfg),
	}
	mcpHandler := nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusOK)
	})
	srv := NewServer(cfg, &store.Store{}, svc, progress.NewBus(), logger, mcpHandler)

	req := httptest.NewRequest(nethttp.MethodPost, "/mcp/", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != nethttp.StatusUnauthorized {
		t.Fatalf("without token: status = %d", resp.StatusCode)
	}

	req = httptest.NewRequest(nethttp.MethodPost, "/mcp/", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = srv.App().Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("with token: status = %d", resp.StatusCode)
	}
}
