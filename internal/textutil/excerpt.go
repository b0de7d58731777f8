package textutil

import (
	"strings"
)

const (
	// HighlightOpen and HighlightClose delimit query matches inside
	// excerpts returned by the markdown retrieval endpoints.
	HighlightOpen  = ">>>"
	HighlightClose = "<<<"

	maxExcerptWindows = 3
)

// Excerpt returns up to maxExcerptWindows slices of content around
// case-insensitive matches of the query terms, with every term occurrence
// inside a window wrapped in the highlight delimiters. radius is the number
// of runes kept on each side of a match. Returns "" when nothing matches.
func Excerpt(content, query string, radius int) string {
	terms := splitTerms(query)
	if len(terms) == 0 || content == "" {
		return ""
	}
	if radius <= 0 {
		radius = 120
	}

	runes := []rune(content)
	lower := strings.ToLower(content)
	lowerRunes := []rune(lower)

	type window struct{ start, end int }
	var windows []window

	// One window per term, anchored at the term's first occurrence.
	for _, term := range terms {
		idx := indexRunes(lowerRunes, []rune(term))
		if idx < 0 {
			continue
		}
		start := idx - radius
		if start < 0 {
			start = 0
		}
		end := idx + len([]rune(term)) + radius
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, window{start, end})
	}
	if len(windows) == 0 {
		return ""
	}

	// Merge overlapping windows, preserving document order.
	merged := windows[:0]
	for _, w := range windows {
		appended := false
		for i := range merged {
			if w.start <= merged[i].end && merged[i].start <= w.end {
				if w.start < merged[i].start {
					merged[i].start = w.start
				}
				if w.end > merged[i].end {
					merged[i].end = w.end
				}
				appended = true
				break
			}
		}
		if !appended {
			merged = append(merged, w)
		}
	}
	if len(merged) > maxExcerptWindows {
		merged = merged[:maxExcerptWindows]
	}

	parts := make([]string, 0, len(merged))
	for _, w := range merged {
		slice := highlightTerms(string(runes[w.start:w.end]), terms)
		if w.start > 0 {
			slice = "…" + slice
		}
		if w.end < len(runes) {
			slice += "…"
		}
		parts = append(parts, slice)
	}
	return strings.Join(parts, "\n")
}

// splitTerms lower-cases and splits a free-text query, dropping one-rune
// fragments that would highlight noise.
func splitTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

// highlightTerms wraps every case-insensitive occurrence of each term.
func highlightTerms(text string, terms []string) string {
	for _, term := range terms {
		text = wrapMatches(text, term)
	}
	return text
}

func wrapMatches(text, lowerTerm string) string {
	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		// Case folding changed byte offsets (e.g. Turkish dotted I);
		// match exactly instead of slicing at shifted positions.
		lower = text
	}
	var b strings.Builder
	pos := 0
	for {
		idx := strings.Index(lower[pos:], lowerTerm)
		if idx < 0 {
			b.WriteString(text[pos:])
			break
		}
		idx += pos
		end := idx + len(lowerTerm)
		b.WriteString(text[pos:idx])
		b.WriteString(HighlightOpen)
		b.WriteString(text[idx:end])
		b.WriteString(HighlightClose)
		pos = end
	}
	return b.String()
}

// indexRunes is strings.Index over rune slices.
func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
