package commands

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/wonny/projeval/internal/alerts"
	"github.com/wonny/projeval/internal/learning"
	"github.com/wonny/projeval/internal/patterns"
	"github.com/wonny/projeval/pkg/config"
	"github.com/wonny/projeval/pkg/database"
	"github.com/wonny/projeval/pkg/httputil"
	"github.com/wonny/projeval/pkg/logger"
	"github.com/wonny/projeval/pkg/redis"
)

const redisPrefix = "projeval"

// app dependencies shared by the long-running commands
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	db           *database.DB
	rdb          *redis.Client
	cache        *redis.Cache
	repo         *learning.Repository
	library      *patterns.Library
	orchestrator *learning.Orchestrator
}

// loadConfig config + logger, honouring --verbose
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// newApp connects storage and wires the learning pipeline
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config + logger
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 2. Connect to database
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 3. Connect to Redis (disabled → in-process lock, no cache)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 4. Load pattern library
	library, err := loadLibrary(cfg.Learning.PatternLibraryPath)
	if err != nil {
		db.Close()
		rdb.Close()
		return nil, err
	}

	// 5. Wire pipeline
	repo := learning.NewRepository(db.Pool)
	cache := redis.NewCache(rdb, redisPrefix)
	orchestrator := learning.NewOrchestrator(
		repo,
		redis.NewLocker(rdb, redisPrefix),
		cache,
		library,
		newDispatcher(cfg, log),
		cfg.Learning,
		log,
	)

	log.WithFields(map[string]interface{}{
		"env":           cfg.Env,
		"redis":         rdb.Enabled(),
		"patterns":      len(library.Patterns),
		"library":       library.Version,
		"alert_email":   cfg.AlertEmail.Enabled,
		"logic_version": cfg.Learning.LogicVersionID,
	}).Debug("Application wired")

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		rdb:          rdb,
		cache:        cache,
		repo:         repo,
		library:      library,
		orchestrator: orchestrator,
	}, nil
}

func (a *app) Close() {
	if err := a.rdb.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}

// loadLibrary empty path = embedded default library
func loadLibrary(path string) (*patterns.Library, error) {
	if path == "" {
		return patterns.DefaultLibrary()
	}
	lib, err := patterns.LoadLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("load pattern library: %w", err)
	}
	return lib, nil
}

// newDispatcher nil when e-mail delivery is disabled
func newDispatcher(cfg *config.Config, log *logger.Logger) *alerts.Dispatcher {
	if !cfg.AlertEmail.Enabled {
		return nil
	}

	client := httputil.New(log)
	if cfg.AlertEmail.APIKey != "" {
		client = client.WithHeader("Authorization", "Bearer "+cfg.AlertEmail.APIKey)
	}
	notifier := alerts.NewEmailNotifier(client, alerts.EmailConfig{
		APIURL: cfg.AlertEmail.APIURL,
		From:   cfg.AlertEmail.From,
		To:     cfg.AlertEmail.To,
	})

	var limiter *rate.Limiter
	if cfg.AlertEmail.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.AlertEmail.RatePerSec), 1)
	}

	return alerts.NewDispatcher(notifier, limiter, log.Zerolog())
}
