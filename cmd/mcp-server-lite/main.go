// Package main provides the standalone MCP entry point for the SCI-90 scorer.
// It needs no external services: sessions live in SQLite and results are
// cached in memory.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/TJerry3s/SCI-90test/internal/cache"
	"github.com/TJerry3s/SCI-90test/internal/config"
	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/mcp"
	"github.com/TJerry3s/SCI-90test/internal/questionnaire"
	"github.com/TJerry3s/SCI-90test/internal/scoring"
	"github.com/TJerry3s/SCI-90test/internal/service"
	"github.com/TJerry3s/SCI-90test/internal/session"
	"github.com/TJerry3s/SCI-90test/internal/setup"
)

func main() {
	// Load lightweight configuration
	cfg := config.LoadLiteConfig()

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cli := setup.NewCLI(os.Stdout, os.Stdin, cfg.DataDir)
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	// stdout carries the MCP protocol, so logs go to stderr.
	logger, err := config.NewLogger(domain.LoggingConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		logger.WithError(err).Fatal("Failed to create data directory")
	}

	engine, err := scoring.NewEngine(questionnaire.Default())
	if err != nil {
		logger.WithError(err).Fatal("Scale definition is invalid")
	}

	store, err := session.NewSQLiteStore(cfg.SessionDBPath())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open session store")
	}
	defer store.Close()

	svc := service.NewAssessmentService(logger, engine, store,
		service.WithCache(cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)),
		service.WithStrictAnswers(cfg.StrictAnswers),
	)

	server, err := mcp.NewServer(svc,
		mcp.WithLogger(logger),
		mcp.WithExportDir(cfg.ExportDir()),
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"data_dir": cfg.DataDir,
		"strict":   cfg.StrictAnswers,
	}).Info("Starting SCI-90 MCP server")

	if err := server.Run(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		store.Close()
		os.Exit(1)
	}

	logger.Info("SCI-90 MCP server stopped")
}
