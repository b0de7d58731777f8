package textutil

import "testing"

func TestGlobMatchSpansSlashes(t *testing.T) {
	cases := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"*", "anything/at/all", true},
		{"https://a.test/*", "https://a.test/x/y/z", true},
		{"https://a.test/*", "https://b.test/x", false},
		{"*.html", "https://a.test/page.html", true},
		{"*.html", "https://a.test/page.pdf", false},
		{"docs/*.md", "docs/guide/intro.md", true},
		{"https://a.test/?", "https://a.test/x", true},
		{"https://a.test/?", "https://a.test/xy", false},
		{"", "", true},
		{"", "x", false},
	}
	for _, tc := range cases {
		if got := GlobMatch(tc.pattern, tc.s); got != tc.want {
			t.Errorf("GlobMatch(%q, %q) = %v, want %v", tc.pattern, tc.s, got, tc.want)
		}
	}
}
