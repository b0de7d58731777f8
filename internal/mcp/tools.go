package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func initCrawlTool() mcp.Tool {
	return mcp.NewTool("init_crawl",
		mcp.WithDescription("Start crawling a documentation site and indexing its code snippets"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Source name, e.g. the library or product the docs belong to"),
		),
		mcp.WithArray("start_urls",
			mcp.WithStringItems(),
			mcp.Required(),
			mcp.Description("Seed URLs the crawl starts from"),
		),
		mcp.WithString("version",
			mcp.Description("Optional version label, e.g. v2"),
		),
		mcp.WithNumber("max_depth",
			mcp.Description("Maximum link depth from the seeds"),
		),
		mcp.WithArray("domain_filter",
			mcp.WithStringItems(),
			mcp.Description("Domains the crawl may visit; defaults to the seed domains"),
		),
		mcp.WithArray("url_patterns",
			mcp.WithStringItems(),
			mcp.Description("Glob patterns URLs must match, e.g. */docs/*"),
		),
		mcp.WithNumber("max_concurrent",
			mcp.Description("Parallel page fetches for this job"),
		),
	)
}

func uploadMarkdownTool() mcp.Tool {
	return mcp.NewTool("upload_markdown",
		mcp.WithDescription("Index one markdown document synchronously and return its snippet count"),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Markdown body to index"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Source name the document belongs to"),
		),
		mcp.WithString("title",
			mcp.Description("Document title; derived from the name when omitted"),
		),
	)
}

func uploadFilesTool() mcp.Tool {
	return mcp.NewTool("upload_files",
		mcp.WithDescription("Index a batch of files asynchronously; returns a job id to poll"),
		mcp.WithArray("files",
			mcp.Required(),
			mcp.Description("Files as objects with path and content fields"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Source name the batch belongs to"),
		),
		mcp.WithString("version",
			mcp.Description("Optional version label"),
		),
		mcp.WithString("title",
			mcp.Description("Document title override for a single-file batch"),
		),
		mcp.WithNumber("max_concurrent",
			mcp.Description("Parallel files processed for this job"),
		),
	)
}

func uploadRepoTool() mcp.Tool {
	return mcp.NewTool("upload_repo",
		mcp.WithDescription("Clone a Git repository and index its documentation files"),
		mcp.WithString("repo_url",
			mcp.Required(),
			mcp.Description("HTTPS clone URL"),
		),
		mcp.WithString("name",
			mcp.Description("Source name; defaults to the repository name"),
		),
		mcp.WithString("version",
			mcp.Description("Optional version label"),
		),
		mcp.WithString("branch",
			mcp.Description("Branch to clone; defaults to the remote HEAD"),
		),
		mcp.WithString("path",
			mcp.Description("Subtree to index, e.g. docs/"),
		),
		mcp.WithString("token",
			mcp.Description("Access token for private repositories; never persisted"),
		),
		mcp.WithArray("include",
			mcp.WithStringItems(),
			mcp.Description("Glob patterns files must match"),
		),
		mcp.WithArray("exclude",
			mcp.WithStringItems(),
			mcp.Description("Glob patterns that exclude files"),
		),
	)
}

func searchLibrariesTool() mcp.Tool {
	return mcp.NewTool("search_libraries",
		mcp.WithDescription("List or fuzzily resolve indexed documentation sources"),
		mcp.WithString("query",
			mcp.Description("Name to match; empty lists everything"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Page size (default 20)"),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page number"),
		),
	)
}

func getContentTool() mcp.Tool {
	return mcp.NewTool("get_content",
		mcp.WithDescription("Search code snippets within one source, with a markdown fallback for sparse results"),
		mcp.WithString("library_id",
			mcp.Required(),
			mcp.Description("Source id or name"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Full-text query"),
		),
		mcp.WithString("language",
			mcp.Description("Restrict hits to one language, e.g. go"),
		),
		mcp.WithString("search_mode",
			mcp.Description("code (default) or enhanced; enhanced always unions matching documents' snippets"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Page size (default 20)"),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page number"),
		),
	)
}

func getSnippetTool() mcp.Tool {
	return mcp.NewTool("get_snippet",
		mcp.WithDescription("Fetch one snippet by id, chunked to a token budget"),
		mcp.WithString("snippet_id",
			mcp.Required(),
			mcp.Description("Snippet id"),
		),
		mcp.WithNumber("max_tokens",
			mcp.Description("Approximate token budget per chunk"),
		),
		mcp.WithNumber("chunk_index",
			mcp.Description("Zero-based chunk to return"),
		),
	)
}

func getPageMarkdownTool() mcp.Tool {
	return mcp.NewTool("get_page_markdown",
		mcp.WithDescription("Fetch a page's markdown by URL or via one of its snippets, with optional highlighted excerpts"),
		mcp.WithString("url",
			mcp.Description("Document URL; either url or snippet_id is required"),
		),
		mcp.WithString("snippet_id",
			mcp.Description("Snippet whose parent document to fetch"),
		),
		mcp.WithString("query",
			mcp.Description("Highlight matches of this query in the excerpt"),
		),
		mcp.WithNumber("max_tokens",
			mcp.Description("Approximate token budget per chunk"),
		),
		mcp.WithNumber("chunk_index",
			mcp.Description("Zero-based chunk to return"),
		),
	)
}

func jobStatusTool() mcp.Tool {
	return mcp.NewTool("get_job_status",
		mcp.WithDescription("Report a crawl or upload job's progress"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job id"),
		),
	)
}

func listJobsTool() mcp.Tool {
	return mcp.NewTool("list_jobs",
		mcp.WithDescription("List crawl jobs, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Page size (default 50)"),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page number"),
		),
	)
}

func cancelJobTool() mcp.Tool {
	return mcp.NewTool("cancel_job",
		mcp.WithDescription("Request cooperative cancellation of a running job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job id"),
		),
	)
}

func deleteJobTool() mcp.Tool {
	return mcp.NewTool("delete_job",
		mcp.WithDescription("Delete a crawl job with all its documents and snippets"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job id"),
		),
	)
}

func recrawlJobTool() mcp.Tool {
	return mcp.NewTool("recrawl_job",
		mcp.WithDescription("Rerun an existing crawl job, optionally only its failed pages"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job id"),
		),
		mcp.WithBoolean("retry_failed",
			mcp.Description("Seed the run from the job's failed pages only"),
		),
		mcp.WithBoolean("ignore_hash",
			mcp.Description("Re-extract pages even when their content is unchanged"),
		),
	)
}

func listSourcesTool() mcp.Tool {
	return mcp.NewTool("list_sources",
		mcp.WithDescription("List indexed sources with their document and snippet counts"),
		mcp.WithString("status",
			mcp.Description("Filter: running or completed"),
		),
		mcp.WithString("job_type",
			mcp.Description("Filter: crawl or upload"),
		),
		mcp.WithString("name",
			mcp.Description("Substring filter on the source name"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Page size (default 50)"),
		),
		mcp.WithNumber("page",
			mcp.Description("1-based page number"),
		),
	)
}

func renameSourceTool() mcp.Tool {
	return mcp.NewTool("rename_source",
		mcp.WithDescription("Rename a source's (name, version) pair"),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Source id"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("New name"),
		),
		mcp.WithString("version",
			mcp.Description("New version label; empty clears it"),
		),
	)
}

func deleteSourceTool() mcp.Tool {
	return mcp.NewTool("delete_source",
		mcp.WithDescription("Delete a source with all its documents and snippets"),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Source id"),
		),
	)
}

func deleteMatchingSnippetsTool() mcp.Tool {
	return mcp.NewTool("delete_matching_snippets",
		mcp.WithDescription("Delete a source's snippets whose title or code contains a pattern"),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Source id"),
		),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Case-insensitive substring to match"),
		),
	)
}
