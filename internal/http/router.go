// Package http is the fiber transport: REST endpoints under the configured
// prefix, the websocket progress feed, health, metrics, and the mounted MCP
// streamable HTTP transport.
package http

import (
	"context"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"

	"docdex/internal/config"
	"docdex/internal/metrics"
	"docdex/internal/progress"
	"docdex/internal/services"
	"docdex/internal/store"
)

// Services bundles the application services the handlers dispatch to.
type Services struct {
	Search    *services.SearchService
	Sources   *services.SourceService
	Documents *services.DocumentService
	Ingestion *services.IngestionService
}

type Server struct {
	app    *fiber.App
	config *config.Config
	store  *store.Store
	svc    Services
	bus    *progress.Bus
	logger *slog.Logger
	rdb    *redis.Client
}

// NewServer wires the fiber app. mcpHandler, when non-nil, is the MCP
// streamable HTTP transport mounted at /mcp.
func NewServer(cfg *config.Config, st *store.Store, svc Services, bus *progress.Bus, logger *slog.Logger, mcpHandler nethttp.Handler) *Server {
	app := fiber.New()

	var rdb *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			rdb = redis.NewClient(opt)
		} else {
			logger.Warn("invalid redis url, redis disabled", "error", err)
		}
	}

	s := &Server{
		app:    app,
		config: cfg,
		store:  st,
		svc:    svc,
		bus:    bus,
		logger: logger,
		rdb:    rdb,
	}

	app.Use(requestMiddleware(logger))

	app.Get("/healthz", s.healthHandler)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("txt")
		return c.SendString(metrics.Export())
	})

	if mcpHandler != nil && cfg.MCP.Enabled {
		mcp := app.Group("/mcp", bearerAuthMiddleware(cfg.MCP.AuthToken))
		mcp.All("/*", adaptor.HTTPHandler(mcpHandler))
	}

	s.registerWebsocket(app)

	api := app.Group(cfg.Server.APIPrefix, rateLimitMiddleware(cfg.RateLimit, rdb))
	s.registerRoutes(api)

	return s
}

func (s *Server) registerRoutes(api fiber.Router) {
	api.Post("/crawl-jobs", s.createCrawlHandler)
	api.Get("/crawl-jobs", s.listCrawlsHandler)
	api.Delete("/crawl-jobs/bulk", s.bulkDeleteCrawlsHandler)
	api.Post("/crawl-jobs/bulk/cancel", s.bulkCancelCrawlsHandler)
	api.Get("/crawl-jobs/:id", s.getCrawlHandler)
	api.Post("/crawl-jobs/:id/cancel", s.cancelCrawlHandler)
	api.Post("/crawl-jobs/:id/recrawl", s.recrawlHandler)
	api.Delete("/crawl-jobs/:id", s.deleteCrawlHandler)
	api.Get("/crawl-jobs/:id/failed-pages", s.failedPagesHandler)

	api.Get("/sources", s.listSourcesHandler)
	api.Get("/sources/search", s.searchSourcesHandler)
	api.Delete("/sources/bulk", s.bulkDeleteSourcesHandler)
	api.Post("/sources/bulk/delete-filtered", s.deleteFilteredSourcesHandler)
	api.Get("/sources/:id", s.getSourceHandler)
	api.Get("/sources/:id/documents", s.sourceDocumentsHandler)
	api.Get("/sources/:id/snippets", s.sourceSnippetsHandler)
	api.Get("/sources/:id/languages", s.sourceLanguagesHandler)
	api.Patch("/sources/:id", s.renameSourceHandler)
	api.Post("/sources/:id/recrawl", s.recrawlSourceHandler)
	api.Delete("/sources/:id", s.deleteSourceHandler)

	api.Post("/upload/markdown", s.uploadMarkdownHandler)
	api.Post("/upload/file", s.uploadFileHandler)
	api.Post("/upload/files", s.uploadFilesHandler)
	api.Post("/upload/github", s.uploadRepoHandler)
	api.Get("/upload/status/:job_id", s.uploadStatusHandler)
	api.Get("/upload/config", s.uploadConfigHandler)

	api.Get("/search", s.searchHandler)
	api.Get("/snippets/:id", s.getSnippetHandler)
	api.Get("/snippets/:id/related", s.relatedSnippetsHandler)
	api.Post("/snippets/sources/:id/delete-matches", s.deleteMatchesHandler)

	api.Get("/documents/markdown", s.documentMarkdownHandler)
	api.Get("/documents/search", s.searchDocumentsHandler)
	api.Get("/documents/:id/snippets", s.documentSnippetsHandler)

	api.Get("/statistics", s.statisticsHandler)
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	// Shallow health: process is up.
	if !c.QueryBool("deep") {
		return c.JSON(fiber.Map{"status": "ok"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := s.store.DB.PingContext(ctx); err != nil {
		dbStatus = "error"
	}

	redisStatus := "disabled"
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			redisStatus = "error"
		} else {
			redisStatus = "ok"
		}
	}

	status := "ok"
	if dbStatus != "ok" || redisStatus == "error" {
		status = "error"
	}
	return c.JSON(fiber.Map{
		"status": status,
		"db":     dbStatus,
		"redis":  redisStatus,
	})
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(10 * time.Second)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
