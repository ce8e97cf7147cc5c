// Package main is the stdio MCP entry point. It needs no external services:
// history is kept in SQLite under the data directory and configuration comes
// from NEURO_RISK_* environment variables.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/neuro-risk-client/internal/config"
	"github.com/neuro-risk-client/internal/mcp"
)

func main() {
	lite := config.LoadLiteConfig()
	if err := lite.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	cfg := lite.ToConfig()

	// stdout carries the protocol, so logs go to stderr
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	logger.WithField("data_dir", lite.DataDir).Info("Starting neuro risk MCP server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := mcp.NewServer(ctx, cfg, mcp.WithLogger(logger), mcp.WithExportDir(lite.ExportDir()))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}
	defer server.Close()

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server failed")
		return
	}

	logger.Info("Neuro risk MCP server stopped")
}
