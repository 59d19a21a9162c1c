package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DateLayout is the accepted SITEMAP_LASTMOD format.
const DateLayout = "2006-01-02"

// Config holds all tool settings, populated from environment variables.
type Config struct {
	BaseURL         string
	OutputPath      string
	CatalogPath     string // empty selects the embedded catalog
	LastMod         time.Time
	ChangeFreq      string
	DefaultPriority float64 // zero means no fallback

	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	MetricsTextfile string

	// Kafka publishing is enabled when brokers are configured.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	lastMod, err := parseLastMod()
	if err != nil {
		return nil, err
	}

	defaultPriority, err := parseDefaultPriority()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:         sharedcfg.EnvOrDefault("SITEMAP_BASE_URL", "https://mouldrestoration.com.au/locations/"),
		OutputPath:      sharedcfg.EnvOrDefault("SITEMAP_OUTPUT", "public/sitemap-locations.xml"),
		CatalogPath:     os.Getenv("SITEMAP_CATALOG"),
		LastMod:         lastMod,
		ChangeFreq:      sharedcfg.EnvOrDefault("SITEMAP_CHANGEFREQ", "weekly"),
		DefaultPriority: defaultPriority,

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),

		KafkaTopic: sharedcfg.EnvOrDefault("KAFKA_TOPIC", "sitemap-locations"),
	}

	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, errors.New("SITEMAP_BASE_URL must be an absolute http(s) URL")
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.OutputPath == "" {
		return nil, errors.New("SITEMAP_OUTPUT is required")
	}
	if cfg.PublishEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// PublishEnabled reports whether sitemap entries should be published to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseLastMod() (time.Time, error) {
	s := os.Getenv("SITEMAP_LASTMOD")
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid SITEMAP_LASTMOD %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func parseDefaultPriority() (float64, error) {
	s := os.Getenv("SITEMAP_DEFAULT_PRIORITY")
	if s == "" {
		return 0, nil
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || p <= 0 || p > 1 {
		return 0, fmt.Errorf("invalid SITEMAP_DEFAULT_PRIORITY %q: want a number in (0, 1]", s)
	}
	return p, nil
}
