// Package main is the entry point for the folderstore daemon, a folder-scoped
// façade over S3-compatible object stores.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/folderstore/folderstore/internal/config"
	ferr "github.com/folderstore/folderstore/internal/errors"
	"github.com/folderstore/folderstore/internal/logging"
	"github.com/folderstore/folderstore/internal/metrics"
	"github.com/folderstore/folderstore/internal/registry"
	"github.com/folderstore/folderstore/internal/server"
	"github.com/folderstore/folderstore/internal/service"
	"github.com/folderstore/folderstore/internal/storage"
	"github.com/folderstore/folderstore/internal/validate"
)

func main() {
	configPath := flag.String("config", "folderstore.yaml", "path to configuration file")
	port := flag.Int("port", 0, "override listening port (default: from config or 9400)")
	host := flag.String("host", "", "override listening host (default: from config or 0.0.0.0)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (default: from config or info)")
	logFormat := flag.String("log-format", "", "log format: text, json (default: from config or text)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Command-line flags override config file values.
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	metrics.Register()

	reg := registry.New()
	validator := validate.New(reg, validate.Options{
		AllowAnyEndpoint: cfg.Validation.AllowAnyEndpoint,
	})

	// Validate and load each persisted entry. Entries that fail validation
	// stay known but unloaded so operations against them report
	// integration_not_loaded rather than entry_not_found.
	ctx := context.Background()
	for _, entry := range cfg.Entries {
		loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		cc, err := validator.Validate(loadCtx, entry.ConnectionConfig)
		if err != nil {
			cancel()
			metrics.ValidationsTotal.WithLabelValues(string(ferr.KindOf(err))).Inc()
			slog.Error("entry failed validation, leaving unloaded",
				"entry", entry.ID, "bucket", entry.Bucket, "error", err)
			reg.MarkKnown(entry.ID)
			continue
		}
		metrics.ValidationsTotal.WithLabelValues("success").Inc()

		client, err := storage.NewClient(loadCtx, cc)
		cancel()
		if err != nil {
			slog.Error("entry client setup failed, leaving unloaded",
				"entry", entry.ID, "bucket", entry.Bucket, "error", err)
			reg.MarkKnown(entry.ID)
			continue
		}
		reg.Register(entry.ID, cc, client)
		slog.Info("loaded connection entry",
			"entry", entry.ID, "bucket", cc.Bucket, "path", cc.BasePath)
	}
	metrics.EntriesLoaded.Set(float64(reg.Len()))

	dispatcher := service.New(reg)
	srv := server.New(cfg, reg, dispatcher, validator)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("folderstore listening", "addr", addr, "entries", reg.Len())
		errCh <- srv.ListenAndServe(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
