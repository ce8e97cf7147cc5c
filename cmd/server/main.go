package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/neuro-risk-client/internal/api"
	"github.com/neuro-risk-client/internal/config"
	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/history"
	"github.com/neuro-risk-client/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
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
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := history.Open(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open history store")
	}
	if store != nil {
		defer store.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	stack, err := service.NewStack(cfg, store, logger, registry)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build assessment stack")
	}

	// Only the log level is applied live; endpoint and history changes need a restart
	configManager.Watch(func(next *domain.Config) {
		if level, err := logrus.ParseLevel(next.Logging.Level); err == nil {
			logger.SetLevel(level)
		}
		logger.Info("Configuration reloaded")
	}, func(err error) {
		logger.WithError(err).Warn("Ignoring invalid configuration change")
	})

	logger.WithFields(logrus.Fields{
		"host":    cfg.Server.Host,
		"port":    cfg.Server.Port,
		"history": cfg.History.Backend,
	}).Info("Starting neuro risk assessment server")

	server := api.NewServer(configManager, stack, api.WithLogger(logger), api.WithGatherer(registry))
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
