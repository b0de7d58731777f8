// Package snippet extracts code-block candidates from markdown and HTML
// documents. Extraction is pure and deterministic: the same input always
// yields the same candidates in document order.
package snippet

import (
	"strings"

	"docdex/internal/model"
)

// Candidate is one extracted code block before enrichment and persistence.
// Line numbers are 1-based and nil for HTML extraction.
type Candidate struct {
	Language       string
	Code           string
	LineStart      *int
	LineEnd        *int
	ContextBefore  string
	ContextAfter   string
	SectionTitle   string
	SectionContent string
}

// Parser holds the extraction thresholds. The zero value extracts every
// block with no surrounding context; use NewParser for the configured
// defaults.
type Parser struct {
	// MinCodeChars drops blocks whose trimmed code is shorter.
	MinCodeChars int
	// ContextLines is how many raw lines before/after a block are captured.
	ContextLines int
}

func NewParser(minCodeChars, contextLines int) *Parser {
	if minCodeChars < 0 {
		minCodeChars = 0
	}
	if contextLines < 0 {
		contextLines = 0
	}
	return &Parser{MinCodeChars: minCodeChars, ContextLines: contextLines}
}

// Parse dispatches on content type. Unknown types are treated as markdown,
// which extracts nothing from plain prose and is safe for text files.
func (p *Parser) Parse(contentType model.ContentType, content string) []Candidate {
	switch contentType {
	case model.ContentTypeHTML:
		return p.ParseHTML(content)
	default:
		return p.ParseMarkdown(content)
	}
}

// keep reports whether a block survives the minimum-length filter.
func (p *Parser) keep(code string) bool {
	return len(strings.TrimSpace(code)) >= p.MinCodeChars
}

// lineOffsets returns the byte offset of each line start, for mapping byte
// positions to 1-based line numbers.
func lineOffsets(src []byte) []int {
	offsets := []int{0}
	for i, b := range src {
		if b == '\n' && i+1 < len(src) {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// lineAt maps a byte offset to its 1-based line number.
func lineAt(offsets []int, pos int) int {
	lo, hi := 0, len(offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if offsets[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}

// contextSlice joins up to n lines from lines[from:to) trimmed of trailing
// blank lines.
func contextSlice(lines []string, from, to int) string {
	if from < 0 {
		from = 0
	}
	if to > len(lines) {
		to = len(lines)
	}
	if from >= to {
		return ""
	}
	return strings.TrimRight(strings.Join(lines[from:to], "\n"), "\n \t")
}
