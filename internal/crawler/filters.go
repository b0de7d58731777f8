package crawler

import (
	"net/url"
	"strings"

	"docdex/internal/textutil"
)

// Filter decides which discovered URLs are admitted to the frontier.
type Filter struct {
	// AllowedDomains admits a URL when its host equals an entry or is a
	// subdomain of one. Empty means the start URLs' hosts.
	AllowedDomains []string
	// URLPatterns are globs matched against the full URL; '*' spans any
	// characters including '/'. Empty admits everything.
	URLPatterns []string
	MaxDepth    int
}

// Normalize canonicalizes a discovered link: resolves it against the parent,
// strips the fragment, and rejects non-http(s) schemes.
func Normalize(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		if base == nil {
			return "", false
		}
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}

// Allow reports whether the URL passes the domain allowlist, the URL
// patterns, and the depth cap.
func (f *Filter) Allow(rawURL string, depth int) bool {
	if depth > f.MaxDepth {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !f.domainAllowed(u.Hostname()) {
		return false
	}
	if len(f.URLPatterns) == 0 {
		return true
	}
	for _, pattern := range f.URLPatterns {
		if textutil.GlobMatch(pattern, rawURL) {
			return true
		}
	}
	return false
}

func (f *Filter) domainAllowed(host string) bool {
	if len(f.AllowedDomains) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, domain := range f.AllowedDomains {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
