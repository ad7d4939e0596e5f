package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const appName = "alccalc"

type Config struct {
	FeedURL      string `yaml:"feed_url"`
	ImageBaseURL string `yaml:"image_base_url"`
	ImageMarker  string `yaml:"image_marker"`
	FetchTimeout string `yaml:"fetch_timeout"`
	CacheDir     string `yaml:"cache_dir"`
	ImageDir     string `yaml:"image_dir"`
	LogLevel     string `yaml:"log_level"`
	OutFile      string `yaml:"out_file"`
}

func (c *Config) FetchTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// CacheDirectory returns the directory holding the raw feed and the parsed
// catalog database.
func (c *Config) CacheDirectory() string {
	if c.CacheDir != "" {
		return c.CacheDir
	}
	return filepath.Join(xdg.CacheHome, appName)
}

// ImageDirectory returns where product images are stored.
func (c *Config) ImageDirectory() string {
	if c.ImageDir != "" {
		return c.ImageDir
	}
	return filepath.Join(c.CacheDirectory(), "product_images")
}

func (c *Config) RawFeedPath() string {
	return filepath.Join(c.CacheDirectory(), "sortiment.xml")
}

func (c *Config) CatalogPath() string {
	return filepath.Join(c.CacheDirectory(), "catalog.db")
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path (or the XDG default). Keys missing from the
// file keep their embedded default values.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: the embedded defaults are complete.
			_ = writeDefaults(path)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	for key, raw := range map[string]string{"feed_url": cfg.FeedURL, "image_base_url": cfg.ImageBaseURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", key, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s: url scheme must be http or https, got %q", key, u.Scheme)
		}
	}
	if strings.TrimSpace(cfg.ImageMarker) == "" {
		return fmt.Errorf("image_marker is required")
	}
	if d, err := time.ParseDuration(cfg.FetchTimeout); err != nil || d <= 0 {
		return fmt.Errorf("fetch_timeout: invalid duration %q", cfg.FetchTimeout)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q (valid: debug, info, warn, error)", cfg.LogLevel)
	}
	return nil
}
