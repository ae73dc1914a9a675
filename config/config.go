// config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSourceURL   = "https://deepstatemap.live/api/history/last"
	DefaultUserAgent   = "Mozilla/5.0 (Windows Phone 10.0; Android 6.0.1; Microsoft; RM-1152) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/52.0.2743.116 Mobile Safari/537.36 Edge/15.15254"
	DefaultDataDir     = "data"
	DefaultArchivePath = "deepstate-map-data.geojson.gz"
	DefaultIndexPath   = "deepstate-map-index.csv"
	DefaultMetricsJob  = "deepstate_map_data"
	DefaultS3Region    = "us-east-1"
)

// DefaultNames are the territory labels merged into the daily snapshot.
var DefaultNames = []string{"CADR and CALR", "Occupied", "Occupied Crimea"}

type SourceConfig struct {
	URL           string        `yaml:"url"`
	UserAgent     string        `yaml:"user_agent"`
	TimeoutStr    string        `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelayStr string        `yaml:"retry_delay"`
	Names         []string      `yaml:"names"`
	Timeout       time.Duration `yaml:"-"` // Parsed duration
	RetryDelay    time.Duration `yaml:"-"` // Parsed duration
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
	Archive string `yaml:"archive"`
	Index   string `yaml:"index"`
}

// DatabaseConfig enables the optional SQL mirror when Driver is set.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "mysql" or "sqlite"
	DSN    string `yaml:"dsn"`
}

type PublishConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Publish  PublishConfig  `yaml:"publish"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// potentialPaths are tried in order when no explicit path is given.
var potentialPaths = []string{
	"config.yaml",
	"config/config.yaml",
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	if err := cfg.applyDefaults(); err != nil {
		// Defaults carry no duration strings, so parsing cannot fail.
		panic(err)
	}
	return cfg
}

// LoadConfig reads configuration from a YAML file, an optional .env file and
// DEEPSTATE_* environment variables, in increasing order of precedence.
// An empty configPath searches the standard locations; finding nothing there
// is not an error and yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if configPath == "" {
		for _, p := range potentialPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	cfg := &Config{}
	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"DEEPSTATE_SOURCE_URL":      &c.Source.URL,
		"DEEPSTATE_DATA_DIR":        &c.Storage.DataDir,
		"DEEPSTATE_ARCHIVE":         &c.Storage.Archive,
		"DEEPSTATE_INDEX":           &c.Storage.Index,
		"DEEPSTATE_DB_DRIVER":       &c.Database.Driver,
		"DEEPSTATE_DB_DSN":          &c.Database.DSN,
		"DEEPSTATE_S3_BUCKET":       &c.Publish.Bucket,
		"DEEPSTATE_S3_REGION":       &c.Publish.Region,
		"DEEPSTATE_S3_ENDPOINT":     &c.Publish.Endpoint,
		"DEEPSTATE_PUSHGATEWAY_URL": &c.Metrics.PushgatewayURL,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}
	if v, ok := os.LookupEnv("DEEPSTATE_S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEEPSTATE_S3_PATH_STYLE %q: %w", v, err)
		}
		c.Publish.PathStyle = b
	}
	return nil
}

func (c *Config) applyDefaults() error {
	var err error

	if c.Source.URL == "" {
		c.Source.URL = DefaultSourceURL
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = DefaultUserAgent
	}
	if c.Source.MaxRetries <= 0 {
		c.Source.MaxRetries = 3
	}
	if len(c.Source.Names) == 0 {
		c.Source.Names = append([]string(nil), DefaultNames...)
	}

	// Parse durations
	c.Source.Timeout = 10 * time.Second
	if c.Source.TimeoutStr != "" {
		c.Source.Timeout, err = time.ParseDuration(c.Source.TimeoutStr)
		if err != nil {
			return fmt.Errorf("failed to parse source timeout: %w", err)
		}
	}
	c.Source.RetryDelay = 5 * time.Second
	if c.Source.RetryDelayStr != "" {
		c.Source.RetryDelay, err = time.ParseDuration(c.Source.RetryDelayStr)
		if err != nil {
			return fmt.Errorf("failed to parse source retry_delay: %w", err)
		}
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = DefaultDataDir
	}
	if c.Storage.Archive == "" {
		c.Storage.Archive = DefaultArchivePath
	}
	if c.Storage.Index == "" {
		c.Storage.Index = DefaultIndexPath
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q: use mysql or sqlite", c.Database.Driver)
	}
	if c.Database.Driver != "" && c.Database.DSN == "" {
		return fmt.Errorf("database driver %q configured without a dsn", c.Database.Driver)
	}

	if c.Publish.Region == "" {
		c.Publish.Region = DefaultS3Region
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = DefaultMetricsJob
	}
	return nil
}
