package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests, jobs, enrichment, and
// search. This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	jobsTotal       = make(map[jobKey]int64)
	llmEnrichTotal  = make(map[llmKey]int64)
	searchTotal     = make(map[searchKey]int64)
	searchHitsTotal = make(map[string]int64)

	pagesIngested    int64
	snippetsIngested int64
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type jobKey struct {
	Type    string
	Outcome string
}

type llmKey struct {
	Model   string
	Outcome string
}

type searchKey struct {
	Mode     string
	Fallback string
}

// RecordRequest increments the request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordJob counts one finished ingestion job. jobType is crawl or upload;
// outcome is completed, failed, or cancelled.
func RecordJob(jobType, outcome string) {
	mu.Lock()
	defer mu.Unlock()
	jobsTotal[jobKey{Type: jobType, Outcome: outcome}]++
}

// RecordEnrichment counts one LLM enrichment attempt. outcome is success,
// fallback, or error.
func RecordEnrichment(model, outcome string) {
	mu.Lock()
	defer mu.Unlock()
	llmEnrichTotal[llmKey{Model: model, Outcome: outcome}]++
}

// RecordSearch counts one content search and its hit count, labelled by mode
// and whether the markdown fallback ran.
func RecordSearch(mode string, fallbackRan bool, hits int) {
	mu.Lock()
	defer mu.Unlock()

	fb := "false"
	if fallbackRan {
		fb = "true"
	}
	searchTotal[searchKey{Mode: mode, Fallback: fb}]++
	if hits > 0 {
		searchHitsTotal[mode] += int64(hits)
	}
}

// RecordIngest counts processed pages and the snippets they produced.
func RecordIngest(pages, snippets int) {
	mu.Lock()
	defer mu.Unlock()
	pagesIngested += int64(pages)
	snippetsIngested += int64(snippets)
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP docdex_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE docdex_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "docdex_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP docdex_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE docdex_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP docdex_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE docdex_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		sum := latencyMsSum[k]
		cnt := latencyMsCount[k]
		fmt.Fprintf(&b, "docdex_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, sum)
		fmt.Fprintf(&b, "docdex_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, cnt)
	}

	b.WriteString("# HELP docdex_jobs_total Finished ingestion jobs by type and outcome\n")
	b.WriteString("# TYPE docdex_jobs_total counter\n")

	var jobKeys []jobKey
	for k := range jobsTotal {
		jobKeys = append(jobKeys, k)
	}
	sort.Slice(jobKeys, func(i, j int) bool {
		if jobKeys[i].Type != jobKeys[j].Type {
			return jobKeys[i].Type < jobKeys[j].Type
		}
		return jobKeys[i].Outcome < jobKeys[j].Outcome
	})
	for _, k := range jobKeys {
		fmt.Fprintf(&b, "docdex_jobs_total{type=\"%s\",outcome=\"%s\"} %d\n",
			k.Type, k.Outcome, jobsTotal[k])
	}

	b.WriteString("# HELP docdex_llm_enrich_requests_total LLM enrichment attempts\n")
	b.WriteString("# TYPE docdex_llm_enrich_requests_total counter\n")

	var llmKeys []llmKey
	for k := range llmEnrichTotal {
		llmKeys = append(llmKeys, k)
	}
	sort.Slice(llmKeys, func(i, j int) bool {
		if llmKeys[i].Model != llmKeys[j].Model {
			return llmKeys[i].Model < llmKeys[j].Model
		}
		return llmKeys[i].Outcome < llmKeys[j].Outcome
	})
	for _, k := range llmKeys {
		fmt.Fprintf(&b, "docdex_llm_enrich_requests_total{model=\"%s\",outcome=\"%s\"} %d\n",
			k.Model, k.Outcome, llmEnrichTotal[k])
	}

	b.WriteString("# HELP docdex_search_requests_total Content searches by mode and fallback use\n")
	b.WriteString("# TYPE docdex_search_requests_total counter\n")

	var searchKeys []searchKey
	for k := range searchTotal {
		searchKeys = append(searchKeys, k)
	}
	sort.Slice(searchKeys, func(i, j int) bool {
		if searchKeys[i].Mode != searchKeys[j].Mode {
			return searchKeys[i].Mode < searchKeys[j].Mode
		}
		return searchKeys[i].Fallback < searchKeys[j].Fallback
	})
	for _, k := range searchKeys {
		fmt.Fprintf(&b, "docdex_search_requests_total{mode=\"%s\",fallback=\"%s\"} %d\n",
			k.Mode, k.Fallback, searchTotal[k])
	}

	b.WriteString("# HELP docdex_search_hits_total Snippet hits returned by mode\n")
	b.WriteString("# TYPE docdex_search_hits_total counter\n")

	var modes []string
	for m := range searchHitsTotal {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	for _, m := range modes {
		fmt.Fprintf(&b, "docdex_search_hits_total{mode=\"%s\"} %d\n", m, searchHitsTotal[m])
	}

	b.WriteString("# HELP docdex_pages_ingested_total Pages processed by the pipeline\n")
	b.WriteString("# TYPE docdex_pages_ingested_total counter\n")
	fmt.Fprintf(&b, "docdex_pages_ingested_total %d\n", pagesIngested)

	b.WriteString("# HELP docdex_snippets_ingested_total Snippets written by the pipeline\n")
	b.WriteString("# TYPE docdex_snippets_ingested_total counter\n")
	fmt.Fprintf(&b, "docdex_snippets_ingested_total %d\n", snippetsIngested)

	return b.String()
}
