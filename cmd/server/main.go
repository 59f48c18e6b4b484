// Package main runs the SCI-90 assessment HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/TJerry3s/SCI-90test/internal/api"
	"github.com/TJerry3s/SCI-90test/internal/cache"
	"github.com/TJerry3s/SCI-90test/internal/config"
	"github.com/TJerry3s/SCI-90test/internal/database"
	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/questionnaire"
	"github.com/TJerry3s/SCI-90test/internal/repository"
	"github.com/TJerry3s/SCI-90test/internal/scoring"
	"github.com/TJerry3s/SCI-90test/internal/service"
	"github.com/TJerry3s/SCI-90test/internal/session"
)

func main() {
	configFile := flag.String("config", "", "path to a configuration file")
	flag.Parse()

	var opts []config.ManagerOption
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}

	// Load configuration
	configManager, err := config.NewManager(opts...)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// A malformed item table must stop startup.
	engine, err := scoring.NewEngine(questionnaire.Default())
	if err != nil {
		logger.WithError(err).Fatal("Scale definition is invalid")
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

	backend, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open storage")
	}
	defer backend.close()

	memory := cache.NewMemoryCache(cfg.Cache.MemoryMaxSize, cfg.Cache.MemoryTTL)
	var shared domain.ResultCache
	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Cache, logger)
		if err != nil {
			// Redis only speeds up result reads; run without it.
			logger.WithError(err).Warn("Redis unavailable, using in-memory result cache only")
		} else {
			defer redisCache.Close()
			shared = redisCache
			backend.checks["redis"] = func(context.Context) error {
				if redisCache.State() == gobreaker.StateOpen {
					return errors.New("circuit breaker open")
				}
				return nil
			}
		}
	}

	svcOpts := []service.Option{
		service.WithCache(cache.NewTieredCache(memory, shared, logger)),
		service.WithStrictAnswers(cfg.Scoring.StrictAnswers),
		service.WithMaxTokenBatch(cfg.Admin.MaxTokenBatch),
	}
	if backend.archive != nil {
		svcOpts = append(svcOpts, service.WithArchive(backend.archive))
	}
	svc := service.NewAssessmentService(logger, engine, backend.store, svcOpts...)

	var serverOpts []api.ServerOption
	for name, check := range backend.checks {
		serverOpts = append(serverOpts, api.WithHealthCheck(name, check))
	}

	server, err := api.NewServer(configManager, svc, logger, serverOpts...)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create HTTP server")
	}

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"storage":     cfg.Storage.Driver,
		"redis":       shared != nil,
		"archive":     backend.archive != nil,
		"environment": cfg.Environment,
	}).Info("Starting SCI-90 assessment server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

type storage struct {
	store   session.Store
	archive service.ResultArchive
	checks  map[string]api.HealthCheck
	closers []func()
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStorage opens the session store for the configured driver. The
// postgres driver also runs migrations and, when enabled, the result archive.
func openStorage(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*storage, error) {
	s := &storage{checks: make(map[string]api.HealthCheck)}

	if cfg.Storage.Driver == "sqlite" {
		store, err := session.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.store = store
		s.closers = append(s.closers, func() { store.Close() })
		s.checks["sessions"] = func(ctx context.Context) error {
			_, err := store.Count(ctx)
			return err
		}
		logger.WithField("path", cfg.Storage.SQLitePath).Info("Using SQLite session store")
		return s, nil
	}

	dbConfig := database.ConfigFrom(cfg.Database)

	migrations, err := database.NewMigrationRunner(dbConfig.URL(), cfg.Storage.MigrationsPath, logger)
	if err != nil {
		return nil, err
	}
	err = migrations.Up(ctx)
	migrations.Close()
	if err != nil {
		return nil, err
	}

	store, err := session.NewPostgresStoreFromURL(dbConfig.URL())
	if err != nil {
		return nil, err
	}
	s.store = store
	s.closers = append(s.closers, func() { store.Close() })

	if cfg.Storage.ArchiveResults {
		db, err := database.NewConnection(ctx, dbConfig, logger)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		s.archive = repository.NewResultRepository(db.Pool, logger)
		s.checks["database"] = db.Health
	} else {
		s.checks["sessions"] = func(ctx context.Context) error {
			_, err := store.Count(ctx)
			return err
		}
	}

	logger.WithFields(logrus.Fields{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Database,
		"archive":  cfg.Storage.ArchiveResults,
	}).Info("Using PostgreSQL session store")
	return s, nil
}
