// Package mcp exposes the indexing and search operations as Model Context
// Protocol tools, over stdio and over streamable HTTP.
package mcp

import (
	nethttp "net/http"

	"github.com/mark3labs/mcp-go/server"

	"docdex/internal/services"
)

// Services bundles the application services the tools dispatch to.
type Services struct {
	Search    *services.SearchService
	Sources   *services.SourceService
	Documents *services.DocumentService
	Ingestion *services.IngestionService
}

// New builds the MCP server with every tool registered.
func New(svc Services, version string) *server.MCPServer {
	s := server.NewMCPServer("docdex", version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(initCrawlTool(), handleInitCrawl(svc.Ingestion))
	s.AddTool(uploadMarkdownTool(), handleUploadMarkdown(svc.Ingestion))
	s.AddTool(uploadFilesTool(), handleUploadFiles(svc.Ingestion))
	s.AddTool(uploadRepoTool(), handleUploadRepo(svc.Ingestion))
	s.AddTool(searchLibrariesTool(), handleSearchLibraries(svc.Search))
	s.AddTool(getContentTool(), handleGetContent(svc.Search))
	s.AddTool(getSnippetTool(), handleGetSnippet(svc.Documents))
	s.AddTool(getPageMarkdownTool(), handleGetPageMarkdown(svc.Documents))
	s.AddTool(jobStatusTool(), handleJobStatus(svc.Ingestion))
	s.AddTool(listJobsTool(), handleListJobs(svc.Ingestion))
	s.AddTool(cancelJobTool(), handleCancelJob(svc.Ingestion))
	s.AddTool(deleteJobTool(), handleDeleteJob(svc.Ingestion))
	s.AddTool(recrawlJobTool(), handleRecrawlJob(svc.Ingestion))
	s.AddTool(listSourcesTool(), handleListSources(svc.Sources))
	s.AddTool(renameSourceTool(), handleRenameSource(svc.Sources))
	s.AddTool(deleteSourceTool(), handleDeleteSource(svc.Sources))
	s.AddTool(deleteMatchingSnippetsTool(), handleDeleteMatchingSnippets(svc.Sources))

	return s
}

// HTTPHandler wraps the server for mounting under the API's /mcp group.
func HTTPHandler(s *server.MCPServer) nethttp.Handler {
	return server.NewStreamableHTTPServer(s)
}

// ServeStdio runs the server over stdin/stdout until EOF.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
