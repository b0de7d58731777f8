package jobs

import (
	"testing"
	"time"
)

func TestStalePrefersNewestTimestamp(t *testing.T) {
	now := time.Now().UTC()
	threshold := time.Minute

	created := now.Add(-time.Hour)
	started := now.Add(-30 * time.Minute)
	heartbeat := now.Add(-10 * time.Second)

	if stale(&heartbeat, &started, created, now, threshold) {
		t.Error("fresh heartbeat reported stale")
	}
	if !stale(nil, &started, created, now, threshold) {
		t.Error("missing heartbeat with old start not reported stale")
	}
	if !stale(nil, nil, created, now, threshold) {
		t.Error("old job with no heartbeat not reported stale")
	}

	recent := now.Add(-time.Second)
	if stale(nil, nil, recent, now, threshold) {
		t.Error("just-created job reported stale")
	}
}

func TestRepoOptionsFromConfig(t *testing.T) {
	opts, ok := repoOptionsFromConfig(map[string]any{
		"repo_url": "https://github.com/acme/docs",
		"branch":   "main",
		"path":     "docs",
		"include":  []any{"*.md"},
		"exclude":  []any{"drafts/*"},
	})
	if !ok {
		t.Fatal("repo config not recognized")
	}
	if opts.URL != "https://github.com/acme/docs" || opts.Branch != "main" || opts.Path != "docs" {
		t.Fatalf("opts = %+v", opts)
	}
	if len(opts.IncludePatterns) != 1 || len(opts.ExcludePatterns) != 1 {
		t.Fatalf("patterns = %v / %v", opts.IncludePatterns, opts.ExcludePatterns)
	}

	if _, ok := repoOptionsFromConfig(map[string]any{"ignore_hash": true}); ok {
		t.Error("direct upload config treated as a repo job")
	}
	if _, ok := repoOptionsFromConfig(nil); ok {
		t.Error("nil config treated as a repo job")
	}
}
