package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/location-sitemap/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	return &config.Config{
		BaseURL:         "https://example.com.au/locations/",
		OutputPath:      filepath.Join(dir, "public", "sitemap-locations.xml"),
		LastMod:         time.Date(2025, time.September, 17, 0, 0, 0, 0, time.UTC),
		ChangeFreq:      "weekly",
		LogLevel:        "error",
		LogFormat:       "json",
		ShutdownTimeout: time.Second,
		MetricsTextfile: filepath.Join(dir, "sitemap.prom"),
	}
}

func TestRun_WritesSitemap(t *testing.T) {
	cfg := testConfig(t)

	require.Equal(t, 0, run(context.Background(), cfg, false))

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<loc>https://example.com.au/locations/carlton</loc>")
	assert.Contains(t, string(data), "<lastmod>2025-09-17</lastmod>")

	metrics, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "location_sitemap_catalog_entries 145")
}

func TestRun_FailureReturnsExitCode(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

	require.Equal(t, 1, run(context.Background(), cfg, false))

	_, err := os.Stat(cfg.OutputPath)
	require.ErrorIs(t, err, os.ErrNotExist)

	metrics, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `location_sitemap_run_errors_total{stage="catalog"} 1`)
}

func TestRun_ServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, run(ctx, cfg, true))
}
