// docdex-mcp serves the MCP toolset over stdio for editor and agent
// integrations. It talks to the same database as the API server; logs go to
// stderr so stdout stays a clean protocol stream.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"docdex/internal/config"
	"docdex/internal/crawler"
	"docdex/internal/ingest"
	"docdex/internal/jobs"
	"docdex/internal/llm"
	"docdex/internal/mcp"
	"docdex/internal/progress"
	"docdex/internal/services"
	"docdex/internal/snippet"
	"docdex/internal/store"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to config file (or DOCDEX_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		logger.Error("open database failed", "error", err)
		os.Exit(3)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancelPing()
		logger.Error("database unreachable", "error", err)
		os.Exit(3)
	}
	cancelPing()

	st := store.New(db)
	bus := progress.NewBus()

	pipeline := &ingest.Pipeline{
		Store:    st,
		Parser:   snippet.NewParser(cfg.Parser.MinSnippetChars, cfg.Parser.ContextLines),
		Enricher: llm.NewEnricher(cfg.LLM, logger),
		Logger:   logger,
	}
	renderer := crawler.NewRenderer(cfg.Renderer, cfg.Crawler.UserAgent)
	fetcher := &ingest.RepoFetcher{Config: cfg.Upload, Logger: logger}
	sched := jobs.New(st, cfg, renderer, pipeline, fetcher, bus, logger)

	mcpServer := mcp.New(mcp.Services{
		Search:    services.NewSearchService(st, cfg.Search),
		Sources:   services.NewSourceService(st),
		Documents: services.NewDocumentService(st, cfg.Search),
		Ingestion: services.NewIngestionService(st, sched, pipeline, cfg),
	}, version)

	logger.Info("mcp stdio server starting")
	if err := mcp.ServeStdio(mcpServer); err != nil {
		logger.Error("mcp server failed", "error", err)
		os.Exit(1)
	}
	sched.Shutdown()
}
