package startup

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" || info.GoVersion == "" || info.OS == "" || info.Arch == "" {
		t.Errorf("incomplete build info: %+v", info)
	}
	if info.GoVersion != GoVersion {
		t.Errorf("GoVersion = %s, want %s", info.GoVersion, GoVersion)
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	if c.RefreshInterval != 3*time.Second {
		t.Errorf("RefreshInterval = %v, want 3s", c.RefreshInterval)
	}
	if c.HomePageSize != 6 || c.CategoryPageSize != 6 {
		t.Errorf("page sizes = %d/%d, want 6/6", c.HomePageSize, c.CategoryPageSize)
	}
	if c.CacheTTL != 7*24*time.Hour {
		t.Errorf("CacheTTL = %v, want 168h", c.CacheTTL)
	}
	if !reflect.DeepEqual(c.ImageExtensions, []string{"jpg", "jpeg", "png", "gif", "webp"}) {
		t.Errorf("ImageExtensions = %v", c.ImageExtensions)
	}
}

func TestApplyEnv(t *testing.T) {
	c := DefaultConfig()
	err := c.ApplyEnv(envMap(map[string]string{
		"IMG_ROOT_DIR":       "/pics",
		"PORT":               "9000",
		"REFRESH_INTERVAL":   "1m",
		"HOME_PAGE_SIZE":     "12",
		"CATEGORY_PAGE_SIZE": " 24 ",
		"IMAGE_EXTENSIONS":   "JPG, png,,",
		"WATCH_ENABLED":      "false",
		"METRICS_PORT":       "", // empty values keep the default
	}))
	if err != nil {
		t.Fatalf("ApplyEnv() error: %v", err)
	}

	if c.RootDir != "/pics" || c.Port != "9000" {
		t.Errorf("RootDir/Port = %q/%q", c.RootDir, c.Port)
	}
	if c.RefreshInterval != time.Minute {
		t.Errorf("RefreshInterval = %v", c.RefreshInterval)
	}
	if c.HomePageSize != 12 || c.CategoryPageSize != 24 {
		t.Errorf("page sizes = %d/%d", c.HomePageSize, c.CategoryPageSize)
	}
	if !reflect.DeepEqual(c.ImageExtensions, []string{"JPG", "png"}) {
		t.Errorf("ImageExtensions = %v", c.ImageExtensions)
	}
	if c.WatchEnabled {
		t.Error("WatchEnabled = true")
	}
	if c.MetricsPort != "9090" {
		t.Errorf("MetricsPort = %q, want default", c.MetricsPort)
	}
}

func TestApplyEnvRejectsMalformedValues(t *testing.T) {
	c := DefaultConfig()
	err := c.ApplyEnv(envMap(map[string]string{
		"HOME_PAGE_SIZE":   "six",
		"REFRESH_INTERVAL": "3",
		"METRICS_ENABLED":  "maybe",
	}))

	if !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
	for _, key := range []string{"HOME_PAGE_SIZE", "REFRESH_INTERVAL", "METRICS_ENABLED"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
}

func TestLoadFileExpandsEnv(t *testing.T) {
	t.Setenv("RP_TEST_ROOT", "/srv/pictures")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "root_dir: ${RP_TEST_ROOT}\nrefresh_interval: 10s\nhome_page_size: 9\nimage_extensions: [png]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c := DefaultConfig()
	if err := c.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	if c.RootDir != "/srv/pictures" {
		t.Errorf("RootDir = %q", c.RootDir)
	}
	if c.RefreshInterval != 10*time.Second {
		t.Errorf("RefreshInterval = %v", c.RefreshInterval)
	}
	if c.HomePageSize != 9 || c.CategoryPageSize != 6 {
		t.Errorf("page sizes = %d/%d", c.HomePageSize, c.CategoryPageSize)
	}
	if !reflect.DeepEqual(c.ImageExtensions, []string{"png"}) {
		t.Errorf("ImageExtensions = %v", c.ImageExtensions)
	}
}

func TestLoadFileErrors(t *testing.T) {
	c := DefaultConfig()
	if err := c.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrConfig) {
		t.Errorf("missing file: err = %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("home_page_size: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.LoadFile(path); !errors.Is(err, ErrConfig) {
		t.Errorf("bad yaml: err = %v", err)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "root_dir: " + other + "\nport: \"7000\"\nhome_page_size: 3\ncategory_page_size: 4\ndatabase_dir: \"\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(LoadOptions{
		File:   path,
		Lookup: envMap(map[string]string{"IMG_ROOT_DIR": root, "HOME_PAGE_SIZE": "5"}),
		Override: func(c *Config) {
			c.CategoryPageSize = 8
		},
	})
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.RootDir != root {
		t.Errorf("RootDir = %q, env should win over file", cfg.RootDir)
	}
	if cfg.Port != "7000" {
		t.Errorf("Port = %q, file should win over default", cfg.Port)
	}
	if cfg.HomePageSize != 5 {
		t.Errorf("HomePageSize = %d, env should win over file", cfg.HomePageSize)
	}
	if cfg.CategoryPageSize != 8 {
		t.Errorf("CategoryPageSize = %d, override should win", cfg.CategoryPageSize)
	}
	if cfg.HistoryEnabled() {
		t.Error("empty database_dir should disable history")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.jpg")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		override func(*Config)
		field    string
	}{
		{"zero home page size", func(c *Config) { c.HomePageSize = 0 }, "home_page_size"},
		{"negative category page size", func(c *Config) { c.CategoryPageSize = -2 }, "category_page_size"},
		{"zero refresh interval", func(c *Config) { c.RefreshInterval = 0 }, "refresh_interval"},
		{"negative refresh interval", func(c *Config) { c.RefreshInterval = -time.Second }, "refresh_interval"},
		{"missing root", func(c *Config) { c.RootDir = filepath.Join(root, "nope") }, "root_dir"},
		{"root is a file", func(c *Config) { c.RootDir = file }, "root_dir"},
		{"bad port", func(c *Config) { c.Port = "http" }, "port"},
		{"no extensions", func(c *Config) { c.ImageExtensions = nil }, "image_extensions"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(LoadOptions{
				Lookup: envMap(nil),
				Override: func(c *Config) {
					c.RootDir = root
					c.DatabaseDir = ""
					tt.override(c)
				},
			})

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want *ConfigError", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestLoadConfigEmptyDatabaseDirDisablesHistory(t *testing.T) {
	root := t.TempDir()

	cfg, err := LoadConfig(LoadOptions{
		Lookup: envMap(map[string]string{"IMG_ROOT_DIR": root, "DATABASE_DIR": ""}),
	})
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.DatabaseDir != "" || cfg.HistoryEnabled() {
		t.Errorf("DatabaseDir = %q, HistoryEnabled = %v, want disabled", cfg.DatabaseDir, cfg.HistoryEnabled())
	}

	c := DefaultConfig()
	if err := c.ApplyEnv(envMap(map[string]string{"DATABASE_DIR": " "})); err != nil {
		t.Fatal(err)
	}
	if c.DatabaseDir != "" {
		t.Errorf("blank DATABASE_DIR = %q, want empty", c.DatabaseDir)
	}

	// Unset keeps the default directory.
	c = DefaultConfig()
	if err := c.ApplyEnv(envMap(nil)); err != nil {
		t.Fatal(err)
	}
	if c.DatabaseDir != "/app/data" {
		t.Errorf("unset DATABASE_DIR = %q, want /app/data", c.DatabaseDir)
	}
}

func TestLoadConfigCreatesDatabaseDir(t *testing.T) {
	root := t.TempDir()
	dbDir := filepath.Join(t.TempDir(), "nested", "data")

	cfg, err := LoadConfig(LoadOptions{
		Lookup: envMap(map[string]string{"IMG_ROOT_DIR": root, "DATABASE_DIR": dbDir}),
	})
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if info, err := os.Stat(cfg.DatabaseDir); err != nil || !info.IsDir() {
		t.Errorf("database directory not created: %v", err)
	}
}

func TestSplitList(t *testing.T) {
	tests := map[string][]string{
		"":             nil,
		"jpg":          {"jpg"},
		" jpg , png ":  {"jpg", "png"},
		",,gif,,webp,": {"gif", "webp"},
	}
	for in, want := range tests {
		if got := SplitList(in); !reflect.DeepEqual(got, want) {
			t.Errorf("SplitList(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := map[string]string{
		"/":               "root",
		"/random":         "random",
		"/api/categories": "api",
		"/healthz":        "healthz",
	}
	for in, want := range tests {
		if got := getRouteGroup(in); got != want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", in, got, want)
		}
	}
}
