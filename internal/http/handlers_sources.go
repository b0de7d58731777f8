package http

import (
	"github.com/gofiber/fiber/v2"

	"docdex/internal/apperr"
	"docdex/internal/model"
	"docdex/internal/services"
)

func (s *Server) listSourcesHandler(c *fiber.Ctx) error {
	limit, offset := pageParams(c, 50)
	sources, total, err := s.svc.Sources.List(c.Context(), services.ListFilter{
		Status:      c.Query("status"),
		JobType:     c.Query("job_type"),
		NamePattern: c.Query("name"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"sources": sources, "total": total})
}

func (s *Server) searchSourcesHandler(c *fiber.Ctx) error {
	sources, err := s.svc.Sources.Search(c.Context(), c.Query("q"), c.QueryInt("limit", 20))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"sources": sources, "total": len(sources)})
}

func (s *Server) getSourceHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	src, err := s.svc.Sources.Get(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(src)
}

func (s *Server) sourceDocumentsHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	limit, offset := pageParams(c, 50)
	docs, total, err := s.svc.Sources.Documents(c.Context(), id, limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"documents": docs, "total": total})
}

func (s *Server) sourceSnippetsHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	limit, offset := pageParams(c, 50)
	snippets, total, err := s.svc.Sources.Snippets(c.Context(), id, c.Query("language"), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"snippets": snippets, "total": total})
}

func (s *Server) sourceLanguagesHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	languages, err := s.svc.Sources.Languages(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"languages": languages})
}

func (s *Server) renameSourceHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req RenameSourceRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.Validation("invalid_body", "request body is not valid JSON"))
	}
	src, err := s.svc.Sources.Rename(c.Context(), id, req.Name, req.Version)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(src)
}

// recrawlSourceHandler reruns the crawl behind a source. Upload sources have
// nothing to recrawl.
func (s *Server) recrawlSourceHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	src, err := s.svc.Sources.Get(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	if src.JobType != model.SourceTypeCrawl {
		return writeError(c, apperr.Validation("not_a_crawl", "source %s was uploaded, not crawled", id))
	}

	var req RecrawlRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, apperr.Validation("invalid_body", "request body is not valid JSON"))
		}
	}
	job, err := s.svc.Ingestion.Recrawl(c.Context(), id, services.RecrawlOptions{
		RetryFailed: req.RetryFailed,
		IgnoreHash:  req.IgnoreHash,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID, "job": job})
}

func (s *Server) deleteSourceHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := s.svc.Sources.Delete(c.Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) bulkDeleteSourcesHandler(c *fiber.Ctx) error {
	var req BulkIDsRequest
	if err := c.BodyParser(&req); err != nil || len(req.IDs) == 0 {
		return writeError(c, apperr.Validation("missing_ids", "ids is required"))
	}
	deleted, err := s.svc.Sources.DeleteBulk(c.Context(), req.IDs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

func (s *Server) deleteFilteredSourcesHandler(c *fiber.Ctx) error {
	var req DeleteFilteredRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.Validation("invalid_body", "request body is not valid JSON"))
	}
	deleted, err := s.svc.Sources.DeleteFiltered(c.Context(), services.ListFilter{
		Status:      req.Status,
		JobType:     req.JobType,
		NamePattern: req.NamePattern,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

func (s *Server) deleteMatchesHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req DeleteMatchesRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.Validation("invalid_body", "request body is not valid JSON"))
	}
	deleted, err := s.svc.Sources.DeleteMatchingSnippets(c.Context(), id, req.Pattern)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

func (s *Server) statisticsHandler(c *fiber.Ctx) error {
	stats, err := s.svc.Sources.Statistics(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}
