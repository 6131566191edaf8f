package logger_test

import (
	"errors"

	"github.com/wonny/projeval/pkg/config"
	"github.com/wonny/projeval/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	// Create logger (SSOT)
	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Scheduler started")
	log.Infof("Learning run finished in %s", "1.2s")
}

// Example_component demonstrates component-scoped structured logging
func Example_component() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg).WithComponent("learning.orchestrator")

	log.WithFields(map[string]interface{}{
		"run_id":   "3f6c2a",
		"compared": 14,
		"skipped":  2,
	}).Info("comparison stage completed")

	log.WithError(errors.New("connection refused")).Warn("alert delivery failed")
}
