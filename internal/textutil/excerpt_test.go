package textutil

import (
	"strings"
	"testing"
)

func TestExcerptHighlightsMatch(t *testing.T) {
	content := "Intro text. Use the middleware helper to wrap handlers. More text."
	got := Excerpt(content, "middleware", 10)
	if got == "" {
		t.Fatalf("expected an excerpt")
	}
	if !strings.Contains(got, HighlightOpen+"middleware"+HighlightClose) {
		t.Fatalf("match not delimited: %q", got)
	}
}

func TestExcerptCaseInsensitive(t *testing.T) {
	content := "The Middleware API is documented below."
	got := Excerpt(content, "middleware", 5)
	if !strings.Contains(got, HighlightOpen+"Middleware"+HighlightClose) {
		t.Fatalf("original casing should be preserved inside delimiters: %q", got)
	}
}

func TestExcerptNoMatch(t *testing.T) {
	if got := Excerpt("nothing relevant here", "quaternion", 20); got != "" {
		t.Fatalf("expected empty excerpt, got %q", got)
	}
}

func TestExcerptEllipsesOnTruncation(t *testing.T) {
	content := strings.Repeat("pad ", 100) + "needle" + strings.Repeat(" pad", 100)
	got := Excerpt(content, "needle", 12)
	if !strings.HasPrefix(got, "…") || !strings.HasSuffix(got, "…") {
		t.Fatalf("truncated excerpt should be wrapped in ellipses: %q", got)
	}
}

func TestExcerptMergesOverlappingWindows(t *testing.T) {
	content := "configure the router and the handler in one place"
	got := Excerpt(content, "router handler", 200)
	// Both terms fit in one merged window, so there is a single line.
	if strings.Contains(got, "\n") {
		t.Fatalf("overlapping windows were not merged: %q", got)
	}
	if !strings.Contains(got, HighlightOpen+"router"+HighlightClose) ||
		!strings.Contains(got, HighlightOpen+"handler"+HighlightClose) {
		t.Fatalf("both terms should be highlighted: %q", got)
	}
}

func TestExcerptDropsSingleRuneTerms(t *testing.T) {
	content := "a b c significant"
	got := Excerpt(content, "a significant", 10)
	if strings.Contains(got, HighlightOpen+"a"+HighlightClose) {
		t.Fatalf("one-rune terms must not be highlighted: %q", got)
	}
}
