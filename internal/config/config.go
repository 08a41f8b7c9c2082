package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string               `toml:"environment"`
	API         APIConfig            `toml:"api"`
	Storage     StorageConfig        `toml:"storage"`
	Offline     OfflineConfig        `toml:"offline"`
	MCP         MCPConfig            `toml:"mcp"`
	Logging     common.LoggingConfig `toml:"logging"`
}

// APIConfig selects and configures the backend collaborator.
type APIConfig struct {
	Mode           string `toml:"mode"` // "http" or "memory"
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Question       string `toml:"question"`

	// CacheTTLSeconds keeps read responses this long; 0 disables the cache.
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
}

// StorageConfig contains durable session storage settings.
type StorageConfig struct {
	Backend string       `toml:"backend"` // "badger" or "file"
	Badger  BadgerConfig `toml:"badger"`
	File    FileConfig   `toml:"file"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// FileConfig contains JSON file storage settings.
type FileConfig struct {
	Path string `toml:"path"`
}

// OfflineConfig configures the in-process backend used when api.mode = "memory".
type OfflineConfig struct {
	Prices map[string]float64 `toml:"prices"`
}

// MCPConfig contains tool server settings.
type MCPConfig struct {
	Name string `toml:"name"`
	Port string `toml:"port"`
}

// IsDevMode returns true when running in dev environment.
func (c *Config) IsDevMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "dev")
}

// IsOffline returns true when the in-process backend is selected.
func (c *Config) IsOffline() bool {
	return strings.EqualFold(strings.TrimSpace(c.API.Mode), "memory")
}

// Validate returns a list of configuration problems. Empty means valid.
func (c *Config) Validate() []string {
	var issues []string

	switch strings.ToLower(c.API.Mode) {
	case "http":
		if strings.TrimSpace(c.API.URL) == "" {
			issues = append(issues, "api.url is required when api.mode is \"http\" (VIRE_API_URL)")
		}
	case "memory":
	default:
		issues = append(issues, fmt.Sprintf("api.mode must be \"http\" or \"memory\", got %q", c.API.Mode))
	}
	if c.API.TimeoutSeconds <= 0 {
		issues = append(issues, "api.timeout_seconds must be positive")
	}
	if c.API.CacheTTLSeconds < 0 {
		issues = append(issues, "api.cache_ttl_seconds must not be negative")
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "badger":
		if c.Storage.Badger.Path == "" {
			issues = append(issues, "storage.badger.path is required (VIRE_BADGER_PATH)")
		}
	case "file":
		if c.Storage.File.Path == "" {
			issues = append(issues, "storage.file.path is required (VIRE_SESSION_FILE)")
		}
	default:
		issues = append(issues, fmt.Sprintf("storage.backend must be \"badger\" or \"file\", got %q", c.Storage.Backend))
	}

	for symbol, price := range c.Offline.Prices {
		if price <= 0 {
			issues = append(issues, fmt.Sprintf("offline.prices.%s must be positive", symbol))
		}
	}

	return issues
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies VIRE_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VIRE_ENV"); env != "" {
		config.Environment = env
	}
	if url := os.Getenv("VIRE_API_URL"); url != "" {
		config.API.URL = url
	}
	if mode := os.Getenv("VIRE_API_MODE"); mode != "" {
		config.API.Mode = mode
	}
	if timeout := os.Getenv("VIRE_API_TIMEOUT"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil {
			config.API.TimeoutSeconds = n
		}
	}
	if ttl := os.Getenv("VIRE_API_CACHE_TTL"); ttl != "" {
		if n, err := strconv.Atoi(ttl); err == nil {
			config.API.CacheTTLSeconds = n
		}
	}
	if backend := os.Getenv("VIRE_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if badgerPath := os.Getenv("VIRE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if file := os.Getenv("VIRE_SESSION_FILE"); file != "" {
		config.Storage.File.Path = file
	}
	if level := os.Getenv("VIRE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("VIRE_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if port := os.Getenv("VIRE_MCP_PORT"); port != "" {
		config.MCP.Port = port
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, apiURL, mode string) {
	if apiURL != "" {
		config.API.URL = apiURL
	}
	if mode != "" {
		config.API.Mode = mode
	}
}
