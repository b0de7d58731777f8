package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docdex/internal/config"
)

func repoFetcher(maxFiles int) *RepoFetcher {
	return &RepoFetcher{
		Config: config.UploadConfig{
			MaxFileSizeBytes: 1 << 20,
			MaxFiles:         maxFiles,
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func writeRepoFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectFilesKeepsIndexableFiles(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(t, dir, "readme.md", "# hello")
	writeRepoFile(t, dir, "guide.html", "<h1>guide</h1>")
	writeRepoFile(t, dir, "main.go", "package main")

	files, err := repoFetcher(10).collectFiles(dir, dir, "https://git.test/o/r/blob/main", RepoOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("collected %d files, want 2", len(files))
	}
	for _, f := range files {
		if !strings.HasPrefix(f.URL, "https://git.test/o/r/blob/main/") {
			t.Errorf("url = %q", f.URL)
		}
		if f.Content == "" {
			t.Errorf("empty content for %q", f.Path)
		}
	}
}

func TestCollectFilesEnforcesFileLimitBeforeReading(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 4; i++ {
		writeRepoFile(t, dir, fmt.Sprintf("doc-%d.md", i), "# doc")
	}
	// Chmod away read access on the last candidate in walk order: the limit
	// check must reject the repository before trying to open it.
	locked := filepath.Join(dir, "doc-3.md")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	_, err := repoFetcher(3).collectFiles(dir, dir, "https://git.test/o/r/blob/main", RepoOptions{})
	if err == nil {
		t.Fatal("oversized repository accepted")
	}
	if !strings.Contains(err.Error(), "file limit") {
		t.Fatalf("err = %v, want the file-limit rejection", err)
	}
}

func TestCollectFilesAllowsExactlyMaxFiles(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		writeRepoFile(t, dir, fmt.Sprintf("doc-%d.md", i), "# doc")
	}

	files, err := repoFetcher(3).collectFiles(dir, dir, "https://git.test/o/r/blob/main", RepoOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("collected %d files, want 3", len(files))
	}
}

func TestCollectFilesSkipsExcludedDirsAndOversize(t *testing.T) {
	dir := t.TempDir()
	writeRepoFile(t, dir, "readme.md", "# hello")
	if err := os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeRepoFile(t, dir, filepath.Join("node_modules", "pkg.md"), "# dep docs")
	writeRepoFile(t, dir, "big.md", strings.Repeat("x", 64))

	f := repoFetcher(10)
	f.Config.MaxFileSizeBytes = 32
	files, err := f.collectFiles(dir, dir, "https://git.test/o/r/blob/main", RepoOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Path != "readme.md" {
		t.Fatalf("files = %+v", files)
	}
}
