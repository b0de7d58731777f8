package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"docdex/internal/config"
	"docdex/internal/model"
)

func testLLMConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		BaseURL:          baseURL,
		Model:            "test-model",
		APIKey:           "test-key",
		MaxConcurrent:    2,
		RequestTimeoutMs: 2000,
		MaxAttempts:      3,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Fatalf("encode reply: %v", err)
	}
}

func TestEnrichParsesProviderFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		chatReply(t, w, `{"title":"Connect to Postgres","description":"Opens a pool.","language":"go","snippet_type":"example","functions":["Open"],"imports":["database/sql"],"keywords":["postgres"]}`)
	}))
	defer srv.Close()

	e := NewEnricher(testLLMConfig(srv.URL), discardLogger())
	got := e.Enrich(context.Background(), Request{Code: "db, _ := sql.Open(...)", LanguageHint: "go"})

	if got.Title != "Connect to Postgres" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.SnippetType != model.SnippetTypeExample {
		t.Errorf("SnippetType = %q", got.SnippetType)
	}
	if len(got.Functions) != 1 || got.Functions[0] != "Open" {
		t.Errorf("Functions = %v", got.Functions)
	}
}

func TestEnrichSalvagesWrappedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "Here you go:\n```json\n{\"title\":\"Wrapped\"}\n```")
	}))
	defer srv.Close()

	e := NewEnricher(testLLMConfig(srv.URL), discardLogger())
	got := e.Enrich(context.Background(), Request{Code: "x = 1", LanguageHint: "python"})
	if got.Title != "Wrapped" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestEnrichRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		chatReply(t, w, `{"title":"Recovered"}`)
	}))
	defer srv.Close()

	e := NewEnricher(testLLMConfig(srv.URL), discardLogger())
	got := e.Enrich(context.Background(), Request{Code: "x", LanguageHint: "go"})
	if got.Title != "Recovered" {
		t.Errorf("Title = %q after retries", got.Title)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestEnrichPermanentFailureFallsBack(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	e := NewEnricher(testLLMConfig(srv.URL), discardLogger())
	got := e.Enrich(context.Background(), Request{Code: "x", LanguageHint: "rust"})
	if got.Title != "rust snippet" {
		t.Errorf("Title = %q, want fallback", got.Title)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1 for a 4xx", n)
	}
}

func TestEnrichDisabledWithoutKey(t *testing.T) {
	cfg := testLLMConfig("http://127.0.0.1:1")
	cfg.APIKey = ""
	e := NewEnricher(cfg, discardLogger())

	if e.Enabled() {
		t.Fatal("enricher should be disabled without an API key")
	}
	got := e.Enrich(context.Background(), Request{Code: "x", LanguageHint: "go", SectionTitle: "Install"})
	if got.Title != "Install" {
		t.Errorf("Title = %q, want section title fallback", got.Title)
	}
}

func TestEnrichForwardsExtraParams(t *testing.T) {
	var seen map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode body: %v", err)
		}
		chatReply(t, w, `{"title":"ok"}`)
	}))
	defer srv.Close()

	cfg := testLLMConfig(srv.URL)
	cfg.ExtraParams = map[string]any{"top_p": 0.9}
	e := NewEnricher(cfg, discardLogger())
	e.Enrich(context.Background(), Request{Code: "x"})

	if v, ok := seen["top_p"].(float64); !ok || v != 0.9 {
		t.Errorf("top_p = %v, want 0.9", seen["top_p"])
	}
}

func TestParseJSONFieldsRejectsProse(t *testing.T) {
	if _, err := parseJSONFields("no json here"); err == nil {
		t.Fatal("expected an error for prose content")
	}
}
