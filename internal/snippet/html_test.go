package snippet

import (
	"strings"
	"testing"
)

const sampleHTML = `<html><body>
<h2>Setup</h2>
<p>Install the package first.</p>
<pre><code class="language-python">print(&quot;hi &amp; bye&quot;)</code></pre>
<p>Run it afterwards.</p>
<h2>Advanced</h2>
<pre class="lang-ruby">puts :ok</pre>
</body></html>`

func TestParseHTMLExtractsPreCode(t *testing.T) {
	p := NewParser(1, 0)
	got := p.ParseHTML(sampleHTML)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}

	first := got[0]
	if first.Language != "python" {
		t.Fatalf("language = %q, want python", first.Language)
	}
	if first.Code != `print("hi & bye")` {
		t.Fatalf("entities not decoded: %q", first.Code)
	}
	if first.SectionTitle != "Setup" {
		t.Fatalf("SectionTitle = %q, want Setup", first.SectionTitle)
	}
	if first.ContextBefore != "Install the package first." {
		t.Fatalf("ContextBefore = %q", first.ContextBefore)
	}
	if first.ContextAfter != "Run it afterwards." {
		t.Fatalf("ContextAfter = %q", first.ContextAfter)
	}
	if first.LineStart != nil || first.LineEnd != nil {
		t.Fatalf("HTML extraction must not invent line numbers")
	}
	if !strings.Contains(first.SectionContent, "Install the package first.") {
		t.Fatalf("SectionContent = %q", first.SectionContent)
	}
	if strings.Contains(first.SectionContent, "Advanced") {
		t.Fatalf("SectionContent leaked past the next heading: %q", first.SectionContent)
	}
}

func TestParseHTMLBarePre(t *testing.T) {
	p := NewParser(1, 0)
	got := p.ParseHTML(sampleHTML)
	second := got[1]
	if second.Language != "ruby" {
		t.Fatalf("language = %q, want ruby (from pre class)", second.Language)
	}
	if second.Code != "puts :ok" {
		t.Fatalf("code = %q", second.Code)
	}
	if second.SectionTitle != "Advanced" {
		t.Fatalf("SectionTitle = %q, want Advanced", second.SectionTitle)
	}
}

func TestParseHTMLMinLength(t *testing.T) {
	p := NewParser(20, 0)
	got := p.ParseHTML(`<pre><code>x</code></pre>`)
	if len(got) != 0 {
		t.Fatalf("short block should be dropped, got %d", len(got))
	}
}

func TestParseHTMLNoLanguageClass(t *testing.T) {
	p := NewParser(1, 0)
	got := p.ParseHTML(`<pre><code class="hljs">select 1;</code></pre>`)
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].Language != "" {
		t.Fatalf("language = %q, want empty", got[0].Language)
	}
}

func TestLanguageFromClass(t *testing.T) {
	cases := []struct {
		class string
		want  string
	}{
		{"language-go", "go"},
		{"lang-python", "python"},
		{"highlight-source-rust", "rust"},
		{"hljs language-TypeScript", "typescript"},
		{"plain", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := languageFromClass(tc.class); got != tc.want {
			t.Fatalf("languageFromClass(%q) = %q, want %q", tc.class, got, tc.want)
		}
	}
}

func TestParseDispatch(t *testing.T) {
	p := NewParser(1, 0)
	md := p.Parse("markdown", "```go\nx := 1\n```\n")
	if len(md) != 1 {
		t.Fatalf("markdown dispatch failed")
	}
	html := p.Parse("html", `<pre><code>x := 1</code></pre>`)
	if len(html) != 1 {
		t.Fatalf("html dispatch failed")
	}
}
