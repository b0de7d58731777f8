package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"docdex/internal/config"
	"docdex/internal/textutil"
)

// defaultExcludedDirs are skipped during repository walks regardless of the
// caller's filters.
var defaultExcludedDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"target":       {},
	"__pycache__":  {},
}

// indexableExtensions are the text formats worth feeding the pipeline.
var indexableExtensions = map[string]struct{}{
	".md":       {},
	".markdown": {},
	".mdx":      {},
	".html":     {},
	".htm":      {},
	".txt":      {},
	".rst":      {},
}

// RepoOptions describes one repository ingestion.
type RepoOptions struct {
	URL    string
	Branch string
	// Path restricts the walk to one subtree of the clone.
	Path            string
	IncludePatterns []string
	ExcludePatterns []string
	// Token overrides the configured Git token for this clone. It is held
	// in memory only and never written to the job config.
	Token string
}

// RepoFetcher shallow-clones repositories and collects their indexable
// files.
type RepoFetcher struct {
	Config config.UploadConfig
	Logger *slog.Logger
}

// Fetch clones the repository and returns its indexable files with
// blob-style source URLs. The clone directory is removed before returning
// unless retention is configured.
func (r *RepoFetcher) Fetch(ctx context.Context, opts RepoOptions) ([]File, error) {
	cloneDir, err := os.MkdirTemp(r.Config.CloneDir, "docdex-clone-*")
	if err != nil {
		return nil, fmt.Errorf("create clone dir: %w", err)
	}
	if !r.Config.KeepCloneDir {
		defer func() {
			if rmErr := os.RemoveAll(cloneDir); rmErr != nil {
				r.Logger.Warn("remove clone dir", "dir", cloneDir, "error", rmErr)
			}
		}()
	}

	token := opts.Token
	if token == "" {
		token = r.Config.GitToken
	}
	cloneURL, err := injectToken(opts.URL, token)
	if err != nil {
		return nil, err
	}

	args := []string{"clone", "--depth", "1"}
	if opts.Branch != "" {
		args = append(args, "--branch", opts.Branch)
	}
	args = append(args, cloneURL, cloneDir)

	cmd := exec.CommandContext(ctx, "git", args...)
	// The token lives in the URL; log only the sanitized form.
	r.Logger.Info("cloning repository", "url", opts.URL, "branch", opts.Branch)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("git clone %s: %w: %s", opts.URL, err, sanitize(string(out), token))
	}

	branch := opts.Branch
	if branch == "" {
		branch = headBranch(ctx, cloneDir)
	}

	root := cloneDir
	if opts.Path != "" {
		root = filepath.Join(cloneDir, filepath.Clean("/"+opts.Path))
	}

	baseURL, err := blobBaseURL(opts.URL, branch)
	if err != nil {
		return nil, err
	}
	return r.collectFiles(root, cloneDir, baseURL, opts)
}

// collectFiles walks the clone subtree and reads every indexable file that
// passes the filters, up to the configured file count.
func (r *RepoFetcher) collectFiles(root, cloneDir, baseURL string, opts RepoOptions) ([]File, error) {
	var files []File
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, excluded := defaultExcludedDirs[d.Name()]; excluded {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(cloneDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !r.wantFile(rel, opts) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > r.Config.MaxFileSizeBytes {
			r.Logger.Debug("skipping oversize file", "path", rel, "size", info.Size())
			return nil
		}

		// Reject before reading so an oversized repository costs no extra IO.
		if len(files) >= r.Config.MaxFiles {
			return fmt.Errorf("repository exceeds the %d file limit", r.Config.MaxFiles)
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files = append(files, File{
			URL:     baseURL + "/" + rel,
			Path:    rel,
			Content: string(content),
		})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return files, nil
}

func (r *RepoFetcher) wantFile(rel string, opts RepoOptions) bool {
	if _, ok := indexableExtensions[strings.ToLower(path.Ext(rel))]; !ok {
		return false
	}
	for _, pattern := range opts.ExcludePatterns {
		if textutil.GlobMatch(pattern, rel) {
			return false
		}
	}
	if len(opts.IncludePatterns) == 0 {
		return true
	}
	for _, pattern := range opts.IncludePatterns {
		if textutil.GlobMatch(pattern, rel) {
			return true
		}
	}
	return false
}

// injectToken adds basic-auth credentials to an https clone URL. The
// resulting URL must never reach logs.
func injectToken(repoURL, token string) (string, error) {
	if token == "" {
		return repoURL, nil
	}
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("parse repo url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return repoURL, nil
	}
	u.User = url.UserPassword("oauth2", token)
	return u.String(), nil
}

// sanitize strips the token from git output before it reaches an error.
func sanitize(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "***")
}

// blobBaseURL derives the `<host>/<owner>/<repo>/blob/<branch>` prefix used
// as the document URL for repo files.
func blobBaseURL(repoURL, branch string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("parse repo url: %w", err)
	}
	repoPath := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	if branch == "" {
		branch = "main"
	}
	return fmt.Sprintf("https://%s/%s/blob/%s", u.Host, repoPath, branch), nil
}

// headBranch asks the clone for its checked-out branch name.
func headBranch(ctx context.Context, cloneDir string) string {
	cmd := exec.CommandContext(ctx, "git", "-C", cloneDir, "rev-parse", "--abbrev-ref", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
