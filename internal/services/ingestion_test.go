package services

import (
	"testing"

	"docdex/internal/apperr"
)

func TestValidateHTTPURL(t *testing.T) {
	for _, raw := range []string{"https://docs.gofiber.io", "http://localhost:8080/docs"} {
		if err := validateHTTPURL(raw); err != nil {
			t.Errorf("validateHTTPURL(%q) = %v", raw, err)
		}
	}
	for _, raw := range []string{"", "ftp://example.com", "docs.gofiber.io", "https://"} {
		err := validateHTTPURL(raw)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("validateHTTPURL(%q) accepted", raw)
		}
	}
}

func TestRepoName(t *testing.T) {
	cases := map[string]string{
		"https://github.com/gofiber/fiber.git": "fiber",
		"https://github.com/gofiber/fiber":     "fiber",
		"https://github.com/gofiber/fiber/":    "fiber",
	}
	for in, want := range cases {
		if got := repoName(in); got != want {
			t.Errorf("repoName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Getting Started":   "getting-started",
		"  API / Reference": "api-reference",
		"---":               "",
		"v2.1 Notes":        "v2-1-notes",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
