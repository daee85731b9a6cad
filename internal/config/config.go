package config

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultCatalog     = "projects.yaml"
	defaultCacheDir    = ".cache/portfoliosync"
	defaultDataDir     = "src/data"
	defaultContentDir  = "src/content/projects"
	defaultConcurrency = 4
	defaultServiceName = "portfoliosync"
)

type Config struct{ v *viper.Viper }

func New() *Config {
	vv := viper.New()
	vv.AutomaticEnv()
	vv.SetDefault("CATALOG", defaultCatalog)
	vv.SetDefault("CACHE_DIR", defaultCacheDir)
	vv.SetDefault("DATA_DIR", defaultDataDir)
	vv.SetDefault("CONTENT_DIR", defaultContentDir)
	vv.SetDefault("CONCURRENCY", defaultConcurrency)
	vv.SetDefault("SERVICE_NAME", defaultServiceName)
	return &Config{v: vv}
}

// BindFlags binds command line flags onto their environment keys.
// A flag that was set on the command line wins over the environment.
func (c *Config) BindFlags(fs *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := c.v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) Set(key string, value any) { c.v.Set(key, value) }

func (c *Config) GetGitHubToken() string {
	if t := c.v.GetString("GITHUB_TOKEN"); t != "" {
		return t
	}
	return c.v.GetString("GH_TOKEN")
}

// GetCatalogPath returns the catalog file listing the projects to sync.
func (c *Config) GetCatalogPath() string { return filepath.Clean(c.v.GetString("CATALOG")) }

// GetCacheDir returns the directory holding one cache record per project.
func (c *Config) GetCacheDir() string { return filepath.Clean(c.v.GetString("CACHE_DIR")) }

// GetDataDir returns the directory receiving projects.json, profile.json and contributions.json.
func (c *Config) GetDataDir() string { return filepath.Clean(c.v.GetString("DATA_DIR")) }

// GetContentDir returns the directory receiving one markdown file per project.
// It is wiped on every run.
func (c *Config) GetContentDir() string { return filepath.Clean(c.v.GetString("CONTENT_DIR")) }

// GetProfileLogin returns the account whose profile readme and contribution
// calendar are fetched. Empty falls back to the catalog's account.
func (c *Config) GetProfileLogin() string { return c.v.GetString("PROFILE_LOGIN") }

// GetConcurrency returns the number of projects fetched at once; defaults to 4.
func (c *Config) GetConcurrency() int {
	if n := c.v.GetInt("CONCURRENCY"); n > 0 {
		return n
	}
	return defaultConcurrency
}

// GetOTLPEndpoint returns the OTLP collector endpoint. Tracing is disabled when empty.
func (c *Config) GetOTLPEndpoint() string { return c.v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT") }

func (c *Config) GetServiceName() string { return c.v.GetString("SERVICE_NAME") }

// GetLogLevel returns the log level from env var LOG_LEVEL mapped to slog.Level.
// Recognized values: debug, info (default), warn|warning, error.
func (c *Config) GetLogLevel() slog.Level {
	switch strings.ToLower(c.v.GetString("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
