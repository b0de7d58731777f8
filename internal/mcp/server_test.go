package mcp

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"docdex/internal/config"
	"docdex/internal/model"
	"docdex/internal/services"
	"docdex/internal/store"
)

type fakeSearchStore struct {
	sources []model.Source
	hits    []model.SnippetHit
}

func (f *fakeSearchStore) ListSources(ctx context.Context, status, jobType, namePattern string, limit, offset int) ([]model.Source, int, error) {
	return f.sources, len(f.sources), nil
}

func (f *fakeSearchStore) SearchSources(ctx context.Context, query string, limit int) ([]model.Source, error) {
	var out []model.Source
	for _, src := range f.sources {
		if strings.Contains(src.Name, query) {
			out = append(out, src)
		}
	}
	return out, nil
}

func (f *fakeSearchStore) GetSource(ctx context.Context, id uuid.UUID) (*model.Source, error) {
	for i := range f.sources {
		if f.sources[i].ID == id {
			return &f.sources[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSearchStore) SearchSnippets(ctx context.Context, query string, sourceID *uuid.UUID, language string, limit, offset int) ([]model.SnippetHit, error) {
	return f.hits, nil
}

func (f *fakeSearchStore) SearchDocuments(ctx context.Context, sourceID *uuid.UUID, query string, limit int) ([]store.DocumentHit, error) {
	return nil, nil
}

func (f *fakeSearchStore) ListSnippetsByDocuments(ctx context.Context, documentIDs []uuid.UUID) ([]model.CodeSnippet, error) {
	return nil, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("content items = %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", result.Content[0])
	}
	return text.Text
}

func TestSearchLibrariesHandler(t *testing.T) {
	fs := &fakeSearchStore{sources: []model.Source{{ID: uuid.New(), Name: "fiber"}}}
	svc := services.NewSearchService(fs, config.Default().Search)
	handler := handleSearchLibraries(svc)

	result, err := handler(context.Background(), callRequest(map[string]any{"query": "fib"}))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if text := resultText(t, result); !strings.Contains(text, "fiber") {
		t.Errorf("result = %s", text)
	}
}

func TestGetContentRequiresQuery(t *testing.T) {
	fs := &fakeSearchStore{}
	svc := services.NewSearchService(fs, config.Default().Search)
	handler := handleGetContent(svc)

	result, err := handler(context.Background(), callRequest(map[string]any{"library_id": "fiber"}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
}

func TestCancelJobRejectsBadID(t *testing.T) {
	handler := handleCancelJob(nil)
	result, err := handler(context.Background(), callRequest(map[string]any{"job_id": "nope"}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
}
