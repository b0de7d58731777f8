package snippet

import (
	"testing"

	"docdex/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		lang    string
		code    string
		section string
		want    model.SnippetType
	}{
		{"yaml config", "yaml", "key: value", "", model.SnippetTypeConfig},
		{"json config", "JSON", `{"a":1}`, "", model.SnippetTypeConfig},
		{"example section", "python", "print(1)", "Usage Examples", model.SnippetTypeExample},
		{"python function", "python", "def handler(req):\n    pass", "", model.SnippetTypeFunction},
		{"go function", "go", "func Add(a, b int) int { return a + b }", "", model.SnippetTypeFunction},
		{"class", "python", "class Widget:\n    pass", "API", model.SnippetTypeClass},
		{"plain", "bash", "ls -la", "", model.SnippetTypeCode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.lang, tc.code, tc.section); got != tc.want {
				t.Fatalf("Classify = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidType(t *testing.T) {
	for _, v := range []string{"function", "class", "example", "config", "code"} {
		if !ValidType(v) {
			t.Fatalf("%q should be valid", v)
		}
	}
	if ValidType("poem") {
		t.Fatalf("unknown type accepted")
	}
}
