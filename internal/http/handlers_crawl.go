package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docdex/internal/apperr"
	"docdex/internal/services"
)

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid_id", "%q is not a valid id", c.Params(param))
	}
	return id, nil
}

// pageParams reads ?limit and ?page (1-based) into limit/offset.
func pageParams(c *fiber.Ctx, defaultLimit int) (int, int) {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func (s *Server) createCrawlHandler(c *fiber.Ctx) error {
	var req CreateCrawlRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.Validation("invalid_body", "request body is not valid JSON"))
	}

	job, err := s.svc.Ingestion.CreateCrawl(c.Context(), services.CreateCrawlRequest{
		Name:          req.Name,
		Version:       req.Version,
		StartURLs:     req.StartURLs,
		MaxDepth:      req.MaxDepth,
		DomainFilter:  req.DomainFilter,
		URLPatterns:   req.URLPatterns,
		MaxConcurrent: req.MaxConcurrent,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID, "job": job})
}

func (s *Server) listCrawlsHandler(c *fiber.Ctx) error {
	limit, offset := pageParams(c, 50)
	jobs, total, err := s.svc.Ingestion.ListCrawls(c.Context(), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"jobs": jobs, "total": total})
}

func (s *Server) getCrawlHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	job, err := s.svc.Ingestion.GetCrawl(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(job)
}

func (s *Server) cancelCrawlHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := s.svc.Ingestion.CancelCrawl(c.Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"job_id": id, "status": "cancelling"})
}

func (s *Server) recrawlHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
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

func (s *Server) deleteCrawlHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := s.svc.Ingestion.DeleteCrawl(c.Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) bulkCancelCrawlsHandler(c *fiber.Ctx) error {
	var req BulkIDsRequest
	if err := c.BodyParser(&req); err != nil || len(req.IDs) == 0 {
		return writeError(c, apperr.Validation("missing_ids", "ids is required"))
	}
	cancelled, err := s.svc.Ingestion.CancelCrawls(c.Context(), req.IDs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"cancelled": cancelled})
}

func (s *Server) bulkDeleteCrawlsHandler(c *fiber.Ctx) error {
	var req BulkIDsRequest
	if err := c.BodyParser(&req); err != nil || len(req.IDs) == 0 {
		return writeError(c, apperr.Validation("missing_ids", "ids is required"))
	}
	deleted, err := s.svc.Ingestion.DeleteCrawls(c.Context(), req.IDs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

func (s *Server) failedPagesHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	pages, err := s.svc.Ingestion.CrawlFailedPages(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"failed_pages": pages, "total": len(pages)})
}
