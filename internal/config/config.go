// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/drfirst/go-healthassist/internal/lookup"
)

// Table sources.
const (
	TableSourceCSV      = "csv"
	TableSourcePostgres = "postgres"
)

// Cache backends.
const (
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	DatabaseURL   string
	RunMigrations bool

	TableSource string
	DataDir     string
	LexiconPath string

	CacheBackend  string
	CacheTTL      time.Duration
	LookupTimeout time.Duration

	UseLiveRxNorm bool
	RxNavBaseURL  string
	OpenFDAURL    string
	HFToken       string
	HFZeroShotURL string

	KafkaBrokers  []string
	EnableTracing bool
	OTLPEndpoint  string

	WarmerWorkers int
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the environment only.
func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		TableSource:   strings.ToLower(getEnv("TABLE_SOURCE", TableSourceCSV)),
		DataDir:       getEnv("DATA_DIR", "."),
		LexiconPath:   os.Getenv("LEXICON_PATH"),
		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory)),
		RxNavBaseURL:  getEnv("RXNAV_BASE_URL", lookup.DefaultRxNavBaseURL),
		OpenFDAURL:    getEnv("OPENFDA_URL", lookup.DefaultOpenFDAURL),
		HFToken:       os.Getenv("HF_TOKEN"),
		HFZeroShotURL: getEnv("HF_ZS_URL", lookup.DefaultZeroShotURL),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	cfg.CacheTTL = getDuration("CACHE_TTL", time.Hour, &errs)
	cfg.LookupTimeout = getDuration("LOOKUP_TIMEOUT", lookup.DefaultTimeout, &errs)
	cfg.UseLiveRxNorm = getBool("USE_LIVE_RXNORM", true, &errs)
	cfg.EnableTracing = getBool("ENABLE_TRACING", false, &errs)
	cfg.RunMigrations = getBool("RUN_MIGRATIONS", true, &errs)
	cfg.WarmerWorkers = getInt("WARMER_WORKERS", 8, &errs)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option combinations.
func (c *Config) Validate() error {
	switch c.TableSource {
	case TableSourceCSV, TableSourcePostgres:
	default:
		return fmt.Errorf("TABLE_SOURCE must be %q or %q, got %q", TableSourceCSV, TableSourcePostgres, c.TableSource)
	}
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendPostgres:
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheBackendMemory, CacheBackendPostgres, c.CacheBackend)
	}
	if c.DatabaseURL == "" {
		if c.TableSource == TableSourcePostgres {
			return errors.New("DATABASE_URL is required when TABLE_SOURCE=postgres")
		}
		if c.CacheBackend == CacheBackendPostgres {
			return errors.New("DATABASE_URL is required when CACHE_BACKEND=postgres")
		}
	}
	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}
	if c.LookupTimeout <= 0 {
		return errors.New("LOOKUP_TIMEOUT must be positive")
	}
	if c.WarmerWorkers <= 0 {
		return errors.New("WARMER_WORKERS must be positive")
	}
	return nil
}

// UsesDatabase reports whether any component needs PostgreSQL.
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

// KafkaEnabled reports whether brokers are configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool, errs *[]error) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func getInt(key string, fallback int, errs *[]error) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
