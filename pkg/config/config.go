// Package config loads wikireader settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/wikireader/pkg/wiki"
)

// Environment variables that override file settings.
const (
	EnvConfigPath = "WIKIREADER_CONFIG"
	EnvDatabase   = "DATABASE_URL"
	EnvAPIURL     = "WIKIPEDIA_API_BASE_URL"
	EnvAddr       = "WIKIREADER_ADDR"
	EnvLogLevel   = "LOG_LEVEL"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	LogLevel  string          `yaml:"log_level"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit   float64  `yaml:"rate_limit"`
	RateBurst   int      `yaml:"rate_burst"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type WikipediaConfig struct {
	APIURL            string        `yaml:"api_url"`
	UserAgent         string        `yaml:"user_agent"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	// SearchConcurrency bounds parallel page lookups per search request.
	SearchConcurrency int `yaml:"search_concurrency"`
}

type AnalysisConfig struct {
	// LexiconPath is an optional sentiment lexicon file; empty uses the built-in one.
	LexiconPath string `yaml:"lexicon_path"`
	// LexiconURL is downloaded to LexiconPath when that file is missing.
	LexiconURL string `yaml:"lexicon_url"`
}

// Defaults returns a config that runs locally without any file.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       10,
			RateBurst:       20,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{URL: "sqlite://./wikireader.db"},
		Wikipedia: WikipediaConfig{
			APIURL:            wiki.DefaultBaseURL,
			UserAgent:         wiki.DefaultUserAgent,
			Timeout:           15 * time.Second,
			RequestsPerSecond: 10,
			SearchConcurrency: 5,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// $WIKIREADER_CONFIG), then environment overrides. An empty path with no
// environment variable skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.Wikipedia.APIURL = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for correctness
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must be >= 0, got %v", c.Server.RateLimit))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("server.rate_burst must be >= 1 when rate limiting, got %d", c.Server.RateBurst))
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if !strings.HasPrefix(c.Wikipedia.APIURL, "http://") && !strings.HasPrefix(c.Wikipedia.APIURL, "https://") {
		errs = append(errs, fmt.Errorf("wikipedia.api_url must be an http(s) URL, got %q", c.Wikipedia.APIURL))
	}
	if c.Wikipedia.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("wikipedia.timeout must be positive, got %v", c.Wikipedia.Timeout))
	}
	if c.Wikipedia.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("wikipedia.requests_per_second must be >= 0, got %v", c.Wikipedia.RequestsPerSecond))
	}
	if c.Wikipedia.SearchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("wikipedia.search_concurrency must be >= 1, got %d", c.Wikipedia.SearchConcurrency))
	}
	if c.Analysis.LexiconURL != "" && c.Analysis.LexiconPath == "" {
		errs = append(errs, errors.New("analysis.lexicon_url needs analysis.lexicon_path to download into"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}
