package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docdex/internal/model"
	"docdex/internal/services"
)

func (s *Server) searchHandler(c *fiber.Ctx) error {
	result, err := s.svc.Search.Content(c.Context(), services.ContentRequest{
		LibraryID: c.Query("library_id"),
		Query:     c.Query("query"),
		Language:  c.Query("language"),
		Mode:      model.SearchMode(c.Query("search_mode")),
		Limit:     c.QueryInt("limit"),
		Page:      c.QueryInt("page", 1),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"source":   result.Source,
		"snippets": result.Snippets,
		"total":    len(result.Snippets),
	})
}

func (s *Server) getSnippetHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	result, err := s.svc.Documents.Snippet(c.Context(), id, c.QueryInt("max_tokens"), c.QueryInt("chunk_index"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"snippet": result.Snippet,
		"code":    result.Code,
		"chunk":   result.Chunk,
	})
}

func (s *Server) relatedSnippetsHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var types []model.RelationshipType
	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, model.RelationshipType(t))
			}
		}
	}

	related, err := s.svc.Documents.Related(c.Context(), id, types, c.QueryInt("limit"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"related": related, "total": len(related)})
}

func (s *Server) documentMarkdownHandler(c *fiber.Ctx) error {
	req := services.PageMarkdownRequest{
		URL:        c.Query("url"),
		Query:      c.Query("query"),
		MaxTokens:  c.QueryInt("max_tokens"),
		ChunkIndex: c.QueryInt("chunk_index"),
	}
	if raw := c.Query("snippet_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err == nil {
			req.SnippetID = &id
		}
	}

	result, err := s.svc.Documents.PageMarkdown(c.Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"document_id": result.Document.ID,
		"url":         result.Document.URL,
		"title":       result.Document.Title,
		"markdown":    result.Markdown,
		"excerpt":     result.Excerpt,
		"chunk":       result.Chunk,
	})
}

func (s *Server) searchDocumentsHandler(c *fiber.Ctx) error {
	var sourceID *uuid.UUID
	if raw := c.Query("source_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err == nil {
			sourceID = &id
		}
	}
	hits, err := s.svc.Documents.SearchDocuments(c.Context(), sourceID, c.Query("query"), c.QueryInt("limit"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"documents": hits, "total": len(hits)})
}

func (s *Server) documentSnippetsHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	snippets, err := s.svc.Documents.DocumentSnippets(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"snippets": snippets, "total": len(snippets)})
}
