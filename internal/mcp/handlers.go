package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"docdex/internal/model"
	"docdex/internal/services"
)

// jsonResult renders any payload as pretty JSON text content.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

func optionalVersion(request mcp.CallToolRequest) *string {
	if v := request.GetString("version", ""); v != "" {
		return &v
	}
	return nil
}

func requireJobID(request mcp.CallToolRequest, param string) (uuid.UUID, *mcp.CallToolResult) {
	raw, err := request.RequireString(param)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError(fmt.Sprintf("%s is required", param))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError(fmt.Sprintf("%q is not a valid id", raw))
	}
	return id, nil
}

func handleInitCrawl(svc *services.IngestionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("name is required"), nil
		}
		startURLs := request.GetStringSlice("start_urls", nil)
		job, err := svc.CreateCrawl(ctx, services.CreateCrawlRequest{
			Name:          name,
			Version:       optionalVersion(request),
			StartURLs:     startURLs,
			MaxDepth:      request.GetInt("max_depth", 0),
			DomainFilter:  request.GetStringSlice("domain_filter", nil),
			URLPatterns:   request.GetStringSlice("url_patterns", nil),
			MaxConcurrent: request.GetInt("max_concurrent", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"job_id": job.ID, "status": job.Status}), nil
	}
}

func handleUploadMarkdown(svc *services.IngestionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError("content is required"), nil
		}
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("name is required"), nil
		}
		result, err := svc.UploadMarkdown(ctx, services.UploadMarkdownRequest{
			Name:    name,
			Title:   request.GetString("title", ""),
			Content: content,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(result), nil
	}
}

func handleUploadFiles(svc *services.IngestionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("name is required"), nil
		}

		rawFiles, _ := request.GetArguments()["files"].([]any)
		var files []model.UploadFile
		for _, rf := range rawFiles {
			m, ok := rf.(map[string]any)
			if !ok {
				continue
			}
			path, _ := m["path"].(string)
			content, _ := m["content"].(string)
			files = append(files, model.UploadFile{Path: path, Content: content})
		}

		job, err := svc.UploadFiles(ctx, services.UploadFilesRequest{
			Name:          name,
			Version:       optionalVersion(request),
			Title:         request.GetString("title", ""),
			Files:         files,
			MaxConcurrent: request.GetInt("max_concurrent", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"job_id": job.ID, "total_files": job.TotalFiles}), nil
	}
}

func handleUploadRepo(svc *services.IngestionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		repoURL, err := request.RequireString("repo_url")
		if err != nil {
			return mcp.NewToolResultError("repo_url is required"), nil
		}
		job, err := svc.UploadRepo(ctx, services.UploadRepoRequest{
			RepoURL: repoURL,
			Name:    request.GetString("name", ""),
			Version: optionalVersion(request),
			Branch:  request.GetString("branch", ""),
			Path:    request.GetString("path", ""),
			Token:   request.GetString("token", ""),
			Include: request.GetStringSlice("include", nil),
			Exclude: request.GetStringSlice("exclude", nil),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"job_id": job.ID, "name": job.Name}), nil
	}
}

func handleSearchLibraries(svc *services.SearchService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := svc.Libraries(ctx, services.LibrariesRequest{
			Query: request.GetString("query", ""),
			Limit: request.GetInt("limit", 0),
			Page:  request.GetInt("page", 1),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"sources": result.Sources, "total": result.Total}), nil
	}
}

func handleGetContent(svc *services.SearchService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		libraryID, err := request.RequireString("library_id")
		if err != nil {
			return mcp.NewToolResultError("library_id is required"), nil
		}
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}
		result, err := svc.Content(ctx, services.ContentRequest{
			LibraryID: libraryID,
			Query:     query,
			Language:  request.GetString("language", ""),
			Mode:      model.SearchMode(request.GetString("search_mode", "")),
			Limit:     request.GetInt("limit", 0),
			Page:      request.GetInt("page", 1),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"source":   result.Source,
			"snippets": result.Snippets,
			"total":    len(result.Snippets),
		}), nil
	}
}

func handleGetSnippet(svc *services.DocumentService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireJobID(request, "snippet_id")
		if errResult != nil {
			return errResult, nil
		}
		result, err := svc.Snippet(ctx, id, request.GetInt("max_tokens", 0), request.GetInt("chunk_index", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"snippet": result.Snippet,
			"code":    result.Code,
			"chunk":   result.Chunk,
		}), nil
	}
}

func handleGetPageMarkdown(svc *services.DocumentService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := services.PageMarkdownRequest{
			URL:        request.GetString("url", ""),
			Query:      request.GetString("query", ""),
			MaxTokens:  request.GetInt("max_tokens", 0),
			ChunkIndex: request.GetInt("chunk_index", 0),
		}
		if raw := request.GetString("snippet_id", ""); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("%q is not a valid id", raw)), nil
			}
			req.SnippetID = &id
		}
		result, err := svc.PageMarkdown(ctx, req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"url":      result.Document.URL,
			"title":    result.Document.Title,
			"markdown": result.Markdown,
			"excerpt":  result.Excerpt,
			"chunk":    result.Chunk,
		}), nil
	}
}

func handleJobStatus(svc *services.IngestionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireJobID(request, "job_id")
		if errResult != nil {
			return errResult, nil
		}
		if job, err := svc.GetCrawl(ctx, id); err == nil {
			return jsonResult(job), nil
		}
		job, failed, err := svc.UploadStatus(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"job": job, "failed_pages": failed}), nil
	}
}

func handleListJobs(svc *services.IngestionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 50)
		page := request.GetInt("page", 1)
		if page < 1 {
			page = 1
		}
		jobsList, total, err := svc.ListCrawls(ctx, limit, (page-1)*limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"jobs": jobsList, "total": total}), nil
	}
}

func handleCancelJob(svc *services.IngestionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireJobID(request, "job_id")
		if errResult != nil {
			return errResult, nil
		}
		err := svc.CancelCrawl(ctx, id)
		if err != nil {
			// Fall through to upload jobs when no crawl job matches.
			if uploadErr := svc.CancelUpload(ctx, id); uploadErr != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
		return jsonResult(map[string]any{"job_id": id, "status": "cancelling"}), nil
	}
}

func handleDeleteJob(svc *services.IngestionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireJobID(request, "job_id")
		if errResult != nil {
			return errResult, nil
		}
		if err := svc.DeleteCrawl(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"job_id": id, "deleted": true}), nil
	}
}

func handleRecrawlJob(svc *services.IngestionService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireJobID(request, "job_id")
		if errResult != nil {
			return errResult, nil
		}
		job, err := svc.Recrawl(ctx, id, services.RecrawlOptions{
			RetryFailed: request.GetBool("retry_failed", false),
			IgnoreHash:  request.GetBool("ignore_hash", false),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"job_id": job.ID, "status": job.Status}), nil
	}
}

func handleListSources(svc *services.SourceService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 50)
		page := request.GetInt("page", 1)
		if page < 1 {
			page = 1
		}
		sources, total, err := svc.List(ctx, services.ListFilter{
			Status:      request.GetString("status", ""),
			JobType:     request.GetString("job_type", ""),
			NamePattern: request.GetString("name", ""),
			Limit:       limit,
			Offset:      (page - 1) * limit,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"sources": sources, "total": total}), nil
	}
}

func handleRenameSource(svc *services.SourceService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireJobID(request, "source_id")
		if errResult != nil {
			return errResult, nil
		}
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError("name is required"), nil
		}
		src, err := svc.Rename(ctx, id, name, optionalVersion(request))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(src), nil
	}
}

func handleDeleteSource(svc *services.SourceService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireJobID(request, "source_id")
		if errResult != nil {
			return errResult, nil
		}
		if err := svc.Delete(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"source_id": id, "deleted": true}), nil
	}
}

func handleDeleteMatchingSnippets(svc *services.SourceService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, errResult := requireJobID(request, "source_id")
		if errResult != nil {
			return errResult, nil
		}
		pattern, err := request.RequireString("pattern")
		if err != nil {
			return mcp.NewToolResultError("pattern is required"), nil
		}
		deleted, err := svc.DeleteMatchingSnippets(ctx, id, pattern)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"deleted": deleted}), nil
	}
}
