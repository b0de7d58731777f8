package metrics

import (
	"strings"
	"testing"
)

func TestRecordRequestAndExport(t *testing.T) {
	RecordRequest("GET", "/api/search", 200, 42)

	out := Export()
	if !strings.Contains(out, "docdex_http_requests_total{method=\"GET\",path=\"/api/search\",status=\"200\"}") {
		t.Fatalf("expected HTTP request metric for GET /api/search in export, got:\n%s", out)
	}
	if !strings.Contains(out, "docdex_http_request_duration_ms_sum") || !strings.Contains(out, "docdex_http_request_duration_ms_count") {
		t.Fatalf("expected latency metrics headers in export, got:\n%s", out)
	}
}

func TestRecordJobAndSearch(t *testing.T) {
	RecordJob("crawl", "completed")
	RecordJob("upload", "failed")
	RecordSearch("code", false, 3)
	RecordSearch("enhanced", true, 2)

	out := Export()
	if !strings.Contains(out, "docdex_jobs_total{type=\"crawl\",outcome=\"completed\"}") {
		t.Fatalf("expected crawl job counter, got:\n%s", out)
	}
	if !strings.Contains(out, "docdex_jobs_total{type=\"upload\",outcome=\"failed\"}") {
		t.Fatalf("expected upload job counter, got:\n%s", out)
	}
	if !strings.Contains(out, "docdex_search_requests_total{mode=\"code\",fallback=\"false\"}") {
		t.Fatalf("expected code search counter, got:\n%s", out)
	}
	if !strings.Contains(out, "docdex_search_requests_total{mode=\"enhanced\",fallback=\"true\"}") {
		t.Fatalf("expected enhanced search counter, got:\n%s", out)
	}
	if !strings.Contains(out, "docdex_search_hits_total{mode=\"code\"}") {
		t.Fatalf("expected search hits counter, got:\n%s", out)
	}
}

func TestRecordEnrichmentAndIngest(t *testing.T) {
	RecordEnrichment("gpt-test", "success")
	RecordEnrichment("gpt-test", "fallback")
	RecordIngest(2, 5)

	out := Export()
	if !strings.Contains(out, "docdex_llm_enrich_requests_total{model=\"gpt-test\",outcome=\"success\"}") {
		t.Fatalf("expected enrichment success counter, got:\n%s", out)
	}
	if !strings.Contains(out, "docdex_llm_enrich_requests_total{model=\"gpt-test\",outcome=\"fallback\"}") {
		t.Fatalf("expected enrichment fallback counter, got:\n%s", out)
	}
	if !strings.Contains(out, "docdex_pages_ingested_total") || !strings.Contains(out, "docdex_snippets_ingested_total") {
		t.Fatalf("expected ingest counters, got:\n%s", out)
	}
}
