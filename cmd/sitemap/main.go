// Command sitemap regenerates the location sitemap from the catalog.
//
// Usage:
//
//	go run ./cmd/sitemap                # write $SITEMAP_OUTPUT and exit
//	go run ./cmd/sitemap -serve         # then keep serving a preview on $HTTP_ADDR
//	go run ./cmd/sitemap -env .env.prod
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/location-sitemap/internal/adapter/file"
	httpadapter "github.com/couchcryptid/location-sitemap/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/location-sitemap/internal/adapter/kafka"
	"github.com/couchcryptid/location-sitemap/internal/catalog"
	"github.com/couchcryptid/location-sitemap/internal/config"
	"github.com/couchcryptid/location-sitemap/internal/observability"
	"github.com/couchcryptid/location-sitemap/internal/pipeline"
	"github.com/couchcryptid/location-sitemap/internal/sitemap"
	"github.com/couchcryptid/location-sitemap/internal/slug"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	serve := flag.Bool("serve", false, "keep serving the generated sitemap, health, and metrics after writing it")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before reading the environment")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load env file", "path", *envFile, "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, *serve)
	stop()
	os.Exit(code)
}

// run generates the sitemap once and, when serve is set, keeps the preview
// server up until ctx is cancelled. It returns the process exit code.
func run(ctx context.Context, cfg *config.Config, serve bool) int {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Publishing is feature-flagged via KAFKA_BROKERS.
	var publisher pipeline.EntryPublisher
	if cfg.PublishEnabled() {
		kp := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = kp
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	source := catalog.Source{
		Path:    cfg.CatalogPath,
		Options: catalog.Options{DefaultPriority: cfg.DefaultPriority},
	}
	builder := pipeline.NewBuilder(slug.Default(), sitemap.Options{
		BaseURL:    cfg.BaseURL,
		LastMod:    cfg.LastMod,
		ChangeFreq: cfg.ChangeFreq,
	}, clockwork.NewRealClock())
	writer := file.NewWriter(cfg.OutputPath)

	p := pipeline.New(source, builder, writer, publisher, logger, metrics)

	_, runErr := p.Run(ctx)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("metrics export failed", "error", err)
		}
	}

	if runErr != nil {
		return 1
	}
	logger.Info("sitemap updated", "path", writer.Path())

	if !serve {
		return 0
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, metrics.Registry, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return 0
}
