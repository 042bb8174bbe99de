package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"

	"random-pictures/internal/logging"
	"random-pictures/internal/mediatypes"
)

// ErrConfig matches every ConfigError.
var ErrConfig = errors.New("invalid configuration")

// ConfigError reports configuration that cannot be used. The service
// refuses to start with one.
type ConfigError struct {
	Source string // "file", "env", "flag" or "validate"
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration (%s): %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConfig) true for any ConfigError.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// Config holds all application configuration.
type Config struct {
	RootDir           string        `yaml:"root_dir" json:"root_dir"`
	Port              string        `yaml:"port" json:"port"`
	MetricsPort       string        `yaml:"metrics_port" json:"metrics_port"`
	MetricsEnabled    bool          `yaml:"metrics_enabled" json:"metrics_enabled"`
	RefreshInterval   time.Duration `yaml:"refresh_interval" json:"refresh_interval"`
	HomePageSize      int           `yaml:"home_page_size" json:"home_page_size"`
	CategoryPageSize  int           `yaml:"category_page_size" json:"category_page_size"`
	ImageExtensions   []string      `yaml:"image_extensions" json:"image_extensions"`
	IncludeHidden     bool          `yaml:"include_hidden" json:"include_hidden"`
	CacheTTL          time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	ResponseCacheSize int           `yaml:"response_cache_size" json:"response_cache_size"`
	WatchEnabled      bool          `yaml:"watch_enabled" json:"watch_enabled"`
	DatabaseDir       string        `yaml:"database_dir" json:"database_dir"`
	LogLevel          string        `yaml:"log_level" json:"log_level"`
	LogHealthChecks   bool          `yaml:"log_health_checks" json:"log_health_checks"`
	ScanWorkers       int           `yaml:"scan_workers" json:"scan_workers"`
	ThumbnailWorkers  int           `yaml:"thumbnail_workers" json:"thumbnail_workers"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		RootDir:           "/app/images",
		Port:              "8081",
		MetricsPort:       "9090",
		MetricsEnabled:    true,
		RefreshInterval:   3 * time.Second,
		HomePageSize:      6,
		CategoryPageSize:  6,
		ImageExtensions:   append([]string(nil), mediatypes.DefaultImageExtensions...),
		CacheTTL:          7 * 24 * time.Hour,
		ResponseCacheSize: 1024,
		WatchEnabled:      true,
		DatabaseDir:       "/app/data",
		LogLevel:          "info",
		LogHealthChecks:   true,
	}
}

// Extensions returns the configured extensions as a lookup set.
func (c *Config) Extensions() mediatypes.ExtensionSet {
	return mediatypes.NewExtensionSet(c.ImageExtensions)
}

// HistoryEnabled reports whether scan history is persisted.
func (c *Config) HistoryEnabled() bool {
	return c.DatabaseDir != ""
}

// Validate checks every field. It does not touch the filesystem beyond
// checking that the root is a directory.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RootDir, validation.Required, validation.By(isDirectory)),
		validation.Field(&c.Port, validation.Required, is.Port),
		validation.Field(&c.MetricsPort, validation.When(c.MetricsEnabled, validation.Required, is.Port)),
		validation.Field(&c.RefreshInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.HomePageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.CategoryPageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.ImageExtensions, validation.Required),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.ResponseCacheSize, validation.Min(0)),
		validation.Field(&c.LogLevel, validation.By(isLogLevel)),
		validation.Field(&c.ScanWorkers, validation.Min(0)),
		validation.Field(&c.ThumbnailWorkers, validation.Min(0)),
	)
}

func isDirectory(value interface{}) error {
	path, _ := value.(string)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

func isLogLevel(value interface{}) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if _, ok := logging.ParseLevel(name); !ok {
		return fmt.Errorf("unknown log level %q", name)
	}
	return nil
}

// LoadFile merges a YAML file into c. ${VAR} references in the file are
// expanded from the environment before parsing.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigError{Source: "file", Err: fmt.Errorf("failed to read config file %s: %w", path, err)}
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return &ConfigError{Source: "file", Err: fmt.Errorf("failed to parse config file %s: %w", path, err)}
	}
	return nil
}

// ApplyEnv overrides c from environment variables read through lookup.
// A value that does not parse is an error rather than silently ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	env.str("IMG_ROOT_DIR", &c.RootDir)
	env.str("PORT", &c.Port)
	env.str("METRICS_PORT", &c.MetricsPort)
	env.boolean("METRICS_ENABLED", &c.MetricsEnabled)
	env.duration("REFRESH_INTERVAL", &c.RefreshInterval)
	env.integer("HOME_PAGE_SIZE", &c.HomePageSize)
	env.integer("CATEGORY_PAGE_SIZE", &c.CategoryPageSize)
	env.list("IMAGE_EXTENSIONS", &c.ImageExtensions)
	env.boolean("INCLUDE_HIDDEN", &c.IncludeHidden)
	env.duration("CACHE_TTL", &c.CacheTTL)
	env.integer("RESPONSE_CACHE_SIZE", &c.ResponseCacheSize)
	env.boolean("WATCH_ENABLED", &c.WatchEnabled)
	env.clearable("DATABASE_DIR", &c.DatabaseDir)
	env.str("LOG_LEVEL", &c.LogLevel)
	env.boolean("LOG_HEALTH_CHECKS", &c.LogHealthChecks)
	env.integer("SCAN_WORKERS", &c.ScanWorkers)
	env.integer("THUMBNAIL_WORKERS", &c.ThumbnailWorkers)

	if len(env.errs) > 0 {
		return &ConfigError{Source: "env", Err: errors.Join(env.errs...)}
	}
	return nil
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) get(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

// clearable is str for settings where an empty value means "off": a set
// but empty variable overwrites dst instead of keeping the default.
func (r *envReader) clearable(key string, dst *string) {
	if v, ok := r.lookup(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func (r *envReader) boolean(key string, dst *bool) {
	if v, ok := r.get(key); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
			return
		}
		*dst = parsed
	}
}

func (r *envReader) integer(key string, dst *int) {
	if v, ok := r.get(key); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: invalid integer %q", key, v))
			return
		}
		*dst = parsed
	}
}

func (r *envReader) duration(key string, dst *time.Duration) {
	if v, ok := r.get(key); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, v))
			return
		}
		*dst = parsed
	}
}

func (r *envReader) list(key string, dst *[]string) {
	if v, ok := r.get(key); ok {
		*dst = SplitList(v)
	}
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadOptions selects the configuration sources.
type LoadOptions struct {
	// File is an optional YAML file; empty skips it.
	File string
	// Lookup reads environment variables; nil means os.LookupEnv.
	Lookup func(string) (string, bool)
	// Override runs last, for command-line flags.
	Override func(*Config)
}

// LoadConfig builds the configuration from defaults, the optional file, the
// environment and flag overrides, in that order, then validates it and
// prepares the database directory. Every failure is a *ConfigError.
func LoadConfig(opts LoadOptions) (*Config, error) {
	cfg := DefaultConfig()

	if opts.File != "" {
		if err := cfg.LoadFile(opts.File); err != nil {
			return nil, err
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	if opts.Override != nil {
		opts.Override(cfg)
	}

	// DEBUG keeps forcing debug output regardless of the configured level.
	if debug, _ := lookup("DEBUG"); debug == "" {
		if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
			logging.SetLevel(level)
		}
	}

	var err error
	if cfg.RootDir, err = filepath.Abs(cfg.RootDir); err != nil {
		return nil, &ConfigError{Source: "validate", Err: fmt.Errorf("failed to resolve image root: %w", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Source: "validate", Err: err}
	}

	if cfg.HistoryEnabled() {
		if cfg.DatabaseDir, err = filepath.Abs(cfg.DatabaseDir); err != nil {
			return nil, &ConfigError{Source: "validate", Err: fmt.Errorf("failed to resolve database directory: %w", err)}
		}
		if err := ensureDirectory(cfg.DatabaseDir, "database"); err != nil {
			return nil, &ConfigError{Source: "validate", Err: fmt.Errorf("database directory error: %w", err)}
		}
		if err := testWriteAccess(cfg.DatabaseDir); err != nil {
			return nil, &ConfigError{Source: "validate", Err: fmt.Errorf("database directory is not writable: %w", err)}
		}
	}

	return cfg, nil
}
