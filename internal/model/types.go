package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is deliberately binary: a job is either still doing work or it
// is done. Success, cancellation, and fatal errors are captured in separate
// fields so that "completed" never needs a third state.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
)

// CrawlPhase refines a running crawl job for progress reporting.
type CrawlPhase string

const (
	PhaseCrawling   CrawlPhase = "crawling"
	PhaseFinalizing CrawlPhase = "finalizing"
)

// SourceType discriminates document ownership between the two job variants.
type SourceType string

const (
	SourceTypeCrawl  SourceType = "crawl"
	SourceTypeUpload SourceType = "upload"
)

// ContentType is the format a document body was ingested as.
type ContentType string

const (
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeHTML     ContentType = "html"
)

// SnippetType classifies an extracted code block.
type SnippetType string

const (
	SnippetTypeFunction SnippetType = "function"
	SnippetTypeClass    SnippetType = "class"
	SnippetTypeExample  SnippetType = "example"
	SnippetTypeConfig   SnippetType = "config"
	SnippetTypeCode     SnippetType = "code"
)

// SearchMode selects the fallback policy for content search.
type SearchMode string

const (
	// SearchModeCode runs the markdown fallback only when the snippet
	// index returns fewer results than the configured threshold.
	SearchModeCode SearchMode = "code"
	// SearchModeEnhanced always runs the markdown fallback.
	SearchModeEnhanced SearchMode = "enhanced"
)

// RelationshipType labels a directed edge between two snippets.
type RelationshipType string

const (
	RelImports          RelationshipType = "imports"
	RelExtends          RelationshipType = "extends"
	RelImplements       RelationshipType = "implements"
	RelUses             RelationshipType = "uses"
	RelExampleOf        RelationshipType = "example_of"
	RelConfigurationFor RelationshipType = "configuration_for"
	RelRelated          RelationshipType = "related"
)

// CrawlJob is one web-crawl ingestion run. (Name, Version) identifies the
// source it produces; counters only ever grow.
type CrawlJob struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Version           *string        `json:"version,omitempty"`
	StartURLs         []string       `json:"start_urls"`
	Status            JobStatus      `json:"status"`
	Phase             CrawlPhase     `json:"crawl_phase,omitempty"`
	ProcessedPages    int            `json:"processed_pages"`
	TotalPages        int            `json:"total_pages"`
	SnippetsExtracted int            `json:"snippets_extracted"`
	ErrorMessage      *string        `json:"error_message,omitempty"`
	RetryCount        int            `json:"retry_count"`
	MaxRetries        int            `json:"max_retries"`
	Config            map[string]any `json:"config,omitempty"`
	LastHeartbeat     *time.Time     `json:"last_heartbeat,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	StartedAt         *time.Time     `json:"started_at,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Cancelled reports whether the job carries the cancellation marker.
func (j *CrawlJob) Cancelled() bool {
	if j.Config == nil {
		return false
	}
	v, ok := j.Config["cancelled"].(bool)
	return ok && v
}

// UploadJob is one file-batch or repository ingestion run.
type UploadJob struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Version           *string        `json:"version,omitempty"`
	Status            JobStatus      `json:"status"`
	ProcessedFiles    int            `json:"processed_files"`
	TotalFiles        int            `json:"total_files"`
	SnippetsExtracted int            `json:"snippets_extracted"`
	ErrorMessage      *string        `json:"error_message,omitempty"`
	RetryCount        int            `json:"retry_count"`
	MaxRetries        int            `json:"max_retries"`
	Config            map[string]any `json:"config,omitempty"`
	LastHeartbeat     *time.Time     `json:"last_heartbeat,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	StartedAt         *time.Time     `json:"started_at,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Cancelled reports whether the job carries the cancellation marker.
func (j *UploadJob) Cancelled() bool {
	if j.Config == nil {
		return false
	}
	v, ok := j.Config["cancelled"].(bool)
	return ok && v
}

// Document is one page or file within a source. Exactly one of CrawlJobID
// and UploadJobID is set, matching SourceType.
type Document struct {
	ID              uuid.UUID   `json:"id"`
	URL             string      `json:"url"`
	Title           string      `json:"title"`
	ContentType     ContentType `json:"content_type"`
	ContentHash     string      `json:"content_hash"`
	MarkdownContent string      `json:"markdown_content,omitempty"`
	CrawlDepth      int         `json:"crawl_depth"`
	ParentURL       *string     `json:"parent_url,omitempty"`
	CrawlJobID      *uuid.UUID  `json:"crawl_job_id,omitempty"`
	UploadJobID     *uuid.UUID  `json:"upload_job_id,omitempty"`
	SourceType      SourceType  `json:"source_type"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// CodeSnippet is one extracted code block with its enrichment. Line numbers
// are nullable: HTML extraction has no source lines.
type CodeSnippet struct {
	ID             uuid.UUID      `json:"id"`
	DocumentID     uuid.UUID      `json:"document_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Language       string         `json:"language"`
	CodeContent    string         `json:"code_content"`
	CodeHash       string         `json:"code_hash"`
	LineStart      *int           `json:"line_start,omitempty"`
	LineEnd        *int           `json:"line_end,omitempty"`
	ContextBefore  string         `json:"context_before,omitempty"`
	ContextAfter   string         `json:"context_after,omitempty"`
	SectionTitle   string         `json:"section_title,omitempty"`
	SectionContent string         `json:"section_content,omitempty"`
	Functions      []string       `json:"functions,omitempty"`
	Imports        []string       `json:"imports,omitempty"`
	Keywords       []string       `json:"keywords,omitempty"`
	SnippetType    SnippetType    `json:"snippet_type"`
	SourceURL      string         `json:"source_url"`
	Meta           map[string]any `json:"meta,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// FailedPage records the last error for one URL or file within a job so it
// can be retried later.
type FailedPage struct {
	ID          uuid.UUID  `json:"id"`
	CrawlJobID  *uuid.UUID `json:"crawl_job_id,omitempty"`
	UploadJobID *uuid.UUID `json:"upload_job_id,omitempty"`
	URL         string     `json:"url"`
	Error       string     `json:"error"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SnippetRelationship is a directed edge between two snippets. Edges are
// stored one-way; the symmetric closure is computed at query time.
type SnippetRelationship struct {
	ID              uuid.UUID        `json:"id"`
	SourceSnippetID uuid.UUID        `json:"source_snippet_id"`
	TargetSnippetID uuid.UUID        `json:"target_snippet_id"`
	Type            RelationshipType `json:"relationship_type"`
	Description     *string          `json:"description,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Source is one row of the source_statistics view: a job projected as a
// named, versioned documentation corpus.
type Source struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Version       *string    `json:"version,omitempty"`
	JobType       SourceType `json:"job_type"`
	Status        JobStatus  `json:"status"`
	DocumentCount int        `json:"document_count"`
	SnippetCount  int        `json:"snippet_count"`
	Languages     []string   `json:"languages,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUpdatedAt time.Time  `json:"last_updated_at"`
}

// SnippetHit is one content-search result. Rank orders primary hits;
// FoundViaDocs marks results discovered through the markdown fallback,
// which always sort below primary hits.
type SnippetHit struct {
	Snippet       CodeSnippet `json:"snippet"`
	DocumentTitle string      `json:"document_title"`
	Rank          float64     `json:"rank"`
	FoundViaDocs  bool        `json:"found_via_docs"`
}

// RelatedSnippet is one edge of the symmetric relationship closure around a
// snippet. Type carries the inverted name for reverse edges.
type RelatedSnippet struct {
	Snippet     CodeSnippet      `json:"snippet"`
	Type        RelationshipType `json:"relationship_type"`
	Description *string          `json:"description,omitempty"`
}

// UploadFile is one in-memory file of a direct upload batch.
type UploadFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}
