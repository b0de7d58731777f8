package crawler

import (
	"testing"

	"docdex/internal/config"
)

func crawlerDefaults() config.CrawlerConfig {
	return config.CrawlerConfig{
		DefaultMaxConcurrent: 5,
		MaxConcurrentLimit:   20,
		MaxDepthLimit:        10,
		QueueCapacity:        100,
	}
}

func TestOptionsFromConfigDefaults(t *testing.T) {
	opts := OptionsFromConfig(nil, crawlerDefaults())
	if opts.MaxDepth != 10 {
		t.Errorf("MaxDepth = %d", opts.MaxDepth)
	}
	if opts.MaxConcurrent != 5 {
		t.Errorf("MaxConcurrent = %d", opts.MaxConcurrent)
	}
	if opts.IgnoreHash {
		t.Error("IgnoreHash defaulted true")
	}
}

func TestOptionsFromConfigReadsJSONNumbers(t *testing.T) {
	// Values round-tripped through jsonb come back as float64.
	jobCfg := map[string]any{
		"max_depth":       float64(3),
		"max_concurrent":  float64(2),
		"ignore_hash":     true,
		"allowed_domains": []any{"docs.test"},
		"url_patterns":    []any{"https://docs.test/*"},
	}
	opts := OptionsFromConfig(jobCfg, crawlerDefaults())
	if opts.MaxDepth != 3 || opts.MaxConcurrent != 2 || !opts.IgnoreHash {
		t.Fatalf("opts = %+v", opts)
	}
	if len(opts.AllowedDomains) != 1 || opts.AllowedDomains[0] != "docs.test" {
		t.Errorf("AllowedDomains = %v", opts.AllowedDomains)
	}
	if len(opts.URLPatterns) != 1 {
		t.Errorf("URLPatterns = %v", opts.URLPatterns)
	}
}

func TestOptionsFromConfigClampsToLimits(t *testing.T) {
	jobCfg := map[string]any{
		"max_depth":      float64(99),
		"max_concurrent": float64(50),
	}
	opts := OptionsFromConfig(jobCfg, crawlerDefaults())
	if opts.MaxDepth != 10 {
		t.Errorf("MaxDepth = %d, want clamp to 10", opts.MaxDepth)
	}
	if opts.MaxConcurrent != 20 {
		t.Errorf("MaxConcurrent = %d, want clamp to 20", opts.MaxConcurrent)
	}
}
