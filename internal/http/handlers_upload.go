package http

import (
	"github.com/gofiber/fiber/v2"

	"docdex/internal/apperr"
	"docdex/internal/model"
	"docdex/internal/services"
)

func (s *Server) uploadMarkdownHandler(c *fiber.Ctx) error {
	var req UploadMarkdownRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.Validation("invalid_body", "request body is not valid JSON"))
	}
	result, err := s.svc.Ingestion.UploadMarkdown(c.Context(), services.UploadMarkdownRequest{
		Name:    req.Name,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (s *Server) uploadFileHandler(c *fiber.Ctx) error {
	var req UploadFileRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.Validation("invalid_body", "request body is not valid JSON"))
	}
	job, err := s.svc.Ingestion.UploadFiles(c.Context(), services.UploadFilesRequest{
		Name:    req.Name,
		Version: req.Version,
		Title:   req.Title,
		Files:   []model.UploadFile{{Path: req.Path, Content: req.Content}},
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID, "job": job})
}

func (s *Server) uploadFilesHandler(c *fiber.Ctx) error {
	var req UploadFilesRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.Validation("invalid_body", "request body is not valid JSON"))
	}
	job, err := s.svc.Ingestion.UploadFiles(c.Context(), services.UploadFilesRequest{
		Name:          req.Name,
		Version:       req.Version,
		Title:         req.Title,
		Files:         req.Files,
		MaxConcurrent: req.MaxConcurrent,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID, "job": job})
}

func (s *Server) uploadRepoHandler(c *fiber.Ctx) error {
	var req UploadRepoRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.Validation("invalid_body", "request body is not valid JSON"))
	}
	job, err := s.svc.Ingestion.UploadRepo(c.Context(), services.UploadRepoRequest{
		RepoURL: req.RepoURL,
		Name:    req.Name,
		Version: req.Version,
		Path:    req.Path,
		Branch:  req.Branch,
		Token:   req.Token,
		Include: req.Include,
		Exclude: req.Exclude,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID, "job": job})
}

func (s *Server) uploadStatusHandler(c *fiber.Ctx) error {
	id, err := parseID(c, "job_id")
	if err != nil {
		return writeError(c, err)
	}
	job, failed, err := s.svc.Ingestion.UploadStatus(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"job": job, "failed_pages": failed})
}

func (s *Server) uploadConfigHandler(c *fiber.Ctx) error {
	return c.JSON(s.svc.Ingestion.UploadConfig())
}
