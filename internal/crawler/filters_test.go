package crawler

import (
	"net/url"
	"testing"
)

func TestNormalizeResolvesRelative(t *testing.T) {
	base, _ := url.Parse("https://docs.test/guide/intro")
	got, ok := Normalize(base, "../api/reference#section")
	if !ok {
		t.Fatal("relative link rejected")
	}
	if got != "https://docs.test/api/reference" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeRejectsNonHTTP(t *testing.T) {
	base, _ := url.Parse("https://docs.test/")
	for _, raw := range []string{"mailto:x@test", "javascript:void(0)", "#anchor", ""} {
		if _, ok := Normalize(base, raw); ok {
			t.Errorf("Normalize accepted %q", raw)
		}
	}
}

func TestFilterDomainAllowlist(t *testing.T) {
	f := &Filter{AllowedDomains: []string{"docs.test"}, MaxDepth: 5}

	if !f.Allow("https://docs.test/page", 1) {
		t.Error("same host rejected")
	}
	if !f.Allow("https://api.docs.test/page", 1) {
		t.Error("subdomain rejected")
	}
	if f.Allow("https://evil.test/page", 1) {
		t.Error("foreign host accepted")
	}
	if f.Allow("https://notdocs.test/page", 1) {
		t.Error("suffix-similar host accepted")
	}
}

func TestFilterMaxDepth(t *testing.T) {
	f := &Filter{MaxDepth: 2}
	if !f.Allow("https://docs.test/", 2) {
		t.Error("depth at limit rejected")
	}
	if f.Allow("https://docs.test/", 3) {
		t.Error("depth past limit accepted")
	}
}

func TestFilterURLPatterns(t *testing.T) {
	f := &Filter{
		URLPatterns: []string{"https://docs.test/en/*", "*/reference/*"},
		MaxDepth:    5,
	}

	if !f.Allow("https://docs.test/en/guide/intro", 1) {
		t.Error("pattern with trailing * rejected a nested path")
	}
	if !f.Allow("https://docs.test/v2/reference/api", 1) {
		t.Error("infix pattern rejected")
	}
	if f.Allow("https://docs.test/fr/guide", 1) {
		t.Error("non-matching URL accepted")
	}
}

func TestSeedDomainsDeduplicates(t *testing.T) {
	got := seedDomains([]string{
		"https://docs.test/a",
		"https://docs.test/b",
		"https://other.test/",
		"not a url",
	})
	if len(got) != 2 || got[0] != "docs.test" || got[1] != "other.test" {
		t.Fatalf("seedDomains = %v", got)
	}
}
