package fingerprint

import "testing"

func TestNormalizeContent(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"collapses runs", "a  b\t\tc", "a b c"},
		{"trims", "  hello world  ", "hello world"},
		{"newlines", "line one\n\nline two\r\n", "line one line two"},
		{"empty", "   \n\t ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeContent(tc.in); got != tc.want {
				t.Fatalf("NormalizeContent(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestContentIgnoresFormatting(t *testing.T) {
	a := Content("# Title\n\nSome   body text.\n")
	b := Content("# Title Some body text.")
	if a != b {
		t.Fatalf("reformatted content hashed differently: %s vs %s", a, b)
	}
	c := Content("# Title\n\nDifferent body text.\n")
	if a == c {
		t.Fatalf("different content produced the same hash")
	}
}

func TestCodeTrimsWhitespaceOnly(t *testing.T) {
	a := Code("\n\nprint(1)\n")
	b := Code("print(1)")
	if a != b {
		t.Fatalf("trimmed code hashed differently: %s vs %s", a, b)
	}
	// Interior whitespace is significant.
	c := Code("print( 1)")
	if a == c {
		t.Fatalf("interior whitespace change did not alter the hash")
	}
}

func TestHashesAreHexSHA256(t *testing.T) {
	h := Code("print(1)")
	if len(h) != 64 {
		t.Fatalf("expected 64 hex chars, got %d (%s)", len(h), h)
	}
	for _, r := range h {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("non-hex rune %q in hash %s", r, h)
		}
	}
}
