// Package config loads pipeline settings from environment variables,
// applying defaults so a bare `fetch` run targets the INMET portal and the
// São Luiz do Paraitinga station out of the box.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds all fetcher settings, populated from environment variables.
type Config struct {
	BaseURL      string // portal index page
	PortalOrigin string // scheme://host of BaseURL, used to resolve relative hrefs
	StationName  string
	UserAgent    string

	RequestTimeout time.Duration

	RawDir       string
	CombinedPath string

	LogLevel  string
	LogFormat string

	// HTTPAddr enables the /metrics endpoint for long runs when set.
	HTTPAddr string

	// Kafka sink configuration. Publishing is enabled by setting KAFKA_BROKERS.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	timeout, err := parseTimeout(envOrDefault("REQUEST_TIMEOUT", "60s"))
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg := &Config{
		BaseURL:        envOrDefault("INMET_BASE_URL", "https://portal.inmet.gov.br/dadoshistoricos"),
		StationName:    envOrDefault("STATION_NAME", "SAO LUIZ DO PARAITINGA"),
		UserAgent:      envOrDefault("USER_AGENT", "Mozilla/5.0"),
		RequestTimeout: timeout,
		RawDir:         envOrDefault("RAW_DIR", "data/raw"),
		CombinedPath:   envOrDefault("COMBINED_PATH", "data/inmet_data_sao_luiz_do_paraitinga_combined.csv"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "text"),
		HTTPAddr:       os.Getenv("HTTP_ADDR"),
		KafkaBrokers:   brokers,
		KafkaTopic:     envOrDefault("KAFKA_TOPIC", "inmet-station-records"),
		KafkaEnabled:   len(brokers) > 0,
	}

	origin, err := originOf(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	cfg.PortalOrigin = origin

	if cfg.StationName == "" {
		return nil, errors.New("STATION_NAME is required")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q (want text or json)", cfg.LogFormat)
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid REQUEST_TIMEOUT %q", s)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// originOf reduces a URL to scheme://host for resolving relative hrefs.
func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid INMET_BASE_URL %q", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
