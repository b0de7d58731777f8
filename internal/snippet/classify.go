package snippet

import (
	"strings"

	"docdex/internal/model"
)

var configLanguages = map[string]struct{}{
	"json": {}, "yaml": {}, "yml": {}, "toml": {}, "ini": {},
	"properties": {}, "env": {}, "dotenv": {}, "xml": {}, "hcl": {},
}

var functionMarkers = []string{
	"def ", "func ", "function ", "fn ", "lambda ", "=> {", "sub ",
}

var classMarkers = []string{
	"class ", "interface ", "struct ", "trait ", "enum ", "type ",
}

// Classify assigns a snippet type from the declared language, the code
// itself, and the section it appeared under. It is the deterministic
// fallback used when LLM enrichment is unavailable, and a sanity default
// when the provider returns an unknown type.
func Classify(language, code, sectionTitle string) model.SnippetType {
	if _, ok := configLanguages[strings.ToLower(language)]; ok {
		return model.SnippetTypeConfig
	}

	lowerSection := strings.ToLower(sectionTitle)
	if strings.Contains(lowerSection, "example") || strings.Contains(lowerSection, "usage") {
		return model.SnippetTypeExample
	}

	trimmed := strings.TrimSpace(code)
	for _, marker := range classMarkers {
		if strings.HasPrefix(trimmed, marker) {
			return model.SnippetTypeClass
		}
	}
	for _, marker := range functionMarkers {
		if strings.Contains(code, marker) {
			return model.SnippetTypeFunction
		}
	}
	return model.SnippetTypeCode
}

// ValidType reports whether the provider returned one of the known types.
func ValidType(t string) bool {
	switch model.SnippetType(t) {
	case model.SnippetTypeFunction, model.SnippetTypeClass, model.SnippetTypeExample,
		model.SnippetTypeConfig, model.SnippetTypeCode:
		return true
	}
	return false
}
