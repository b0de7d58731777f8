package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"docdex/internal/config"
	"docdex/internal/crawler"
	server "docdex/internal/http"
	"docdex/internal/ingest"
	"docdex/internal/jobs"
	"docdex/internal/llm"
	"docdex/internal/mcp"
	"docdex/internal/migrate"
	"docdex/internal/progress"
	"docdex/internal/services"
	"docdex/internal/snippet"
	"docdex/internal/store"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to config file (or DOCDEX_CONFIG)")
	role := flag.String("role", "all", "process role: api|worker|all")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}
	if *role != "api" && *role != "worker" && *role != "all" {
		fmt.Fprintf(os.Stderr, "invalid role %q (expected api|worker|all)\n", *role)
		os.Exit(2)
	}

	logger := newLogger(cfg.Logging)

	if err := migrate.Run(cfg.Database.DSN()); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(3)
	}

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

	svc := server.Services{
		Search:    services.NewSearchService(st, cfg.Search),
		Sources:   services.NewSourceService(st),
		Documents: services.NewDocumentService(st, cfg.Search),
		Ingestion: services.NewIngestionService(st, sched, pipeline, cfg),
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *role != "api" {
		if err := sched.RecoverStalled(rootCtx); err != nil {
			logger.Error("stall recovery failed", "error", err)
		}
	}

	if *role == "worker" {
		logger.Info("worker running", "max_jobs", cfg.Worker.MaxConcurrentJobs)
		<-rootCtx.Done()
		sched.Shutdown()
		return
	}

	mcpServer := mcp.New(mcp.Services{
		Search:    svc.Search,
		Sources:   svc.Sources,
		Documents: svc.Documents,
		Ingestion: svc.Ingestion,
	}, version)

	srv := server.NewServer(cfg, st, svc, bus, logger, mcp.HTTPHandler(mcpServer))

	go func() {
		<-rootCtx.Done()
		logger.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error("server shutdown", "error", err)
		}
	}()

	logger.Info("listening", "host", cfg.Server.Host, "port", cfg.Server.Port, "role", *role)
	if err := srv.Listen(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	sched.Shutdown()
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
