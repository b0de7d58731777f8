package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docdex/internal/apperr"
	"docdex/internal/model"
)

// ErrorResponse is the error envelope every endpoint returns. Codes are
// stable SCREAMING_SNAKE identifiers.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// writeError translates a service error into status plus envelope.
func writeError(c *fiber.Ctx, err error) error {
	code := strings.ToUpper(apperr.CodeOf(err))
	detail := err.Error()
	status := apperr.HTTPStatus(err)
	if code == "" {
		code = "INTERNAL_ERROR"
		detail = "internal error"
	}
	return c.Status(status).JSON(ErrorResponse{Detail: detail, Code: code})
}

// CreateCrawlRequest is the POST /crawl-jobs body.
type CreateCrawlRequest struct {
	Name          string         `json:"name"`
	Version       *string        `json:"version,omitempty"`
	StartURLs     []string       `json:"start_urls"`
	MaxDepth      int            `json:"max_depth,omitempty"`
	DomainFilter  []string       `json:"domain_filter,omitempty"`
	URLPatterns   []string       `json:"url_patterns,omitempty"`
	MaxConcurrent int            `json:"max_concurrent,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// RecrawlRequest tunes POST /crawl-jobs/{id}/recrawl.
type RecrawlRequest struct {
	RetryFailed bool `json:"retry_failed,omitempty"`
	IgnoreHash  bool `json:"ignore_hash,omitempty"`
}

// BulkIDsRequest carries the id list of a bulk cancel or delete.
type BulkIDsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// RenameSourceRequest is the PATCH /sources/{id} body.
type RenameSourceRequest struct {
	Name    string  `json:"name"`
	Version *string `json:"version,omitempty"`
}

// DeleteFilteredRequest selects sources for bulk deletion.
type DeleteFilteredRequest struct {
	Status      string `json:"status,omitempty"`
	JobType     string `json:"job_type,omitempty"`
	NamePattern string `json:"name_pattern,omitempty"`
}

// UploadMarkdownRequest is the POST /upload/markdown body.
type UploadMarkdownRequest struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// UploadFileRequest is the POST /upload/file body: a batch of one.
type UploadFileRequest struct {
	Name    string  `json:"name"`
	Version *string `json:"version,omitempty"`
	Title   string  `json:"title,omitempty"`
	Path    string  `json:"path"`
	Content string  `json:"content"`
}

// UploadFilesRequest is the POST /upload/files body.
type UploadFilesRequest struct {
	Name          string             `json:"name"`
	Version       *string            `json:"version,omitempty"`
	Title         string             `json:"title,omitempty"`
	Files         []model.UploadFile `json:"files"`
	MaxConcurrent int                `json:"max_concurrent,omitempty"`
}

// UploadRepoRequest is the POST /upload/github body.
type UploadRepoRequest struct {
	RepoURL string   `json:"repo_url"`
	Name    string   `json:"name,omitempty"`
	Version *string  `json:"version,omitempty"`
	Branch  string   `json:"branch,omitempty"`
	Path    string   `json:"path,omitempty"`
	Token   string   `json:"token,omitempty"`
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// DeleteMatchesRequest is the snippet pattern deletion body.
type DeleteMatchesRequest struct {
	Pattern string `json:"pattern"`
}
