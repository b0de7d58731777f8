package snippet

import (
	"strings"
	"testing"
)

const sampleMarkdown = `# Install

Intro paragraph.

` + "```bash" + `
npm install next
` + "```" + `

## Usage

Before text.

` + "```js" + `
const x = 1;
console.log(x);
` + "```" + `
After text.`

func TestParseMarkdownExtractsFences(t *testing.T) {
	p := NewParser(1, 2)
	got := p.ParseMarkdown(sampleMarkdown)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}

	first := got[0]
	if first.Language != "bash" {
		t.Fatalf("first language = %q, want bash", first.Language)
	}
	if first.Code != "npm install next\n" {
		t.Fatalf("first code = %q", first.Code)
	}
	if first.LineStart == nil || *first.LineStart != 6 {
		t.Fatalf("first LineStart = %v, want 6", first.LineStart)
	}
	if first.LineEnd == nil || *first.LineEnd != 6 {
		t.Fatalf("first LineEnd = %v, want 6", first.LineEnd)
	}
	if first.SectionTitle != "Install" {
		t.Fatalf("first SectionTitle = %q, want Install", first.SectionTitle)
	}
	if !strings.Contains(first.SectionContent, "Intro paragraph.") {
		t.Fatalf("section content missing prose: %q", first.SectionContent)
	}
	if strings.Contains(first.SectionContent, "Usage") {
		t.Fatalf("section content leaked past the next heading: %q", first.SectionContent)
	}
	if first.ContextBefore != "Intro paragraph." {
		t.Fatalf("ContextBefore = %q", first.ContextBefore)
	}

	second := got[1]
	if second.Language != "js" {
		t.Fatalf("second language = %q, want js", second.Language)
	}
	if second.LineStart == nil || *second.LineStart != 14 {
		t.Fatalf("second LineStart = %v, want 14", second.LineStart)
	}
	if second.LineEnd == nil || *second.LineEnd != 15 {
		t.Fatalf("second LineEnd = %v, want 15", second.LineEnd)
	}
	if second.SectionTitle != "Usage" {
		t.Fatalf("second SectionTitle = %q, want Usage", second.SectionTitle)
	}
	if second.ContextAfter != "After text." {
		t.Fatalf("ContextAfter = %q", second.ContextAfter)
	}
}

func TestParseMarkdownOrderIsDocumentOrder(t *testing.T) {
	p := NewParser(1, 0)
	got := p.ParseMarkdown(sampleMarkdown)
	if len(got) != 2 || got[0].Language != "bash" || got[1].Language != "js" {
		t.Fatalf("candidates out of order: %+v", got)
	}
}

func TestParseMarkdownMinLengthFilter(t *testing.T) {
	md := "```python\nx=1\n```\n\n```python\nprint(\"long enough to keep\")\n```\n"
	p := NewParser(10, 0)
	got := p.ParseMarkdown(md)
	if len(got) != 1 {
		t.Fatalf("expected short block to be dropped, got %d candidates", len(got))
	}
	if !strings.Contains(got[0].Code, "long enough") {
		t.Fatalf("wrong block kept: %q", got[0].Code)
	}
}

func TestParseMarkdownNoInfoString(t *testing.T) {
	p := NewParser(1, 0)
	got := p.ParseMarkdown("```\nplain block\n```\n")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Language != "" {
		t.Fatalf("language = %q, want empty", got[0].Language)
	}
}

func TestParseMarkdownNoFences(t *testing.T) {
	p := NewParser(1, 0)
	if got := p.ParseMarkdown("# Just prose\n\nNothing to extract here.\n"); len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestParseMarkdownNoHeading(t *testing.T) {
	p := NewParser(1, 0)
	got := p.ParseMarkdown("```go\npackage main\n```\n")
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].SectionTitle != "" || got[0].SectionContent != "" {
		t.Fatalf("expected empty section for heading-less document, got %+v", got[0])
	}
}

func TestParseMarkdownDeterministic(t *testing.T) {
	p := NewParser(1, 2)
	a := p.ParseMarkdown(sampleMarkdown)
	b := p.ParseMarkdown(sampleMarkdown)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic candidate count")
	}
	for i := range a {
		if a[i].Code != b[i].Code || a[i].SectionTitle != b[i].SectionTitle {
			t.Fatalf("non-deterministic extraction at %d", i)
		}
	}
}
