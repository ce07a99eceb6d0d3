package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// CacheOff disables the persistent cache when used as CachePath.
const CacheOff = "off"

type Config struct {
	Language  string `json:"language" yaml:"language" toml:"language"`
	EngineURL string `json:"engine_url" yaml:"engine_url" toml:"engine_url"`

	DisabledRules      []string `json:"disabled_rules" yaml:"disabled_rules" toml:"disabled_rules"`
	DisabledCategories []string `json:"disabled_categories" yaml:"disabled_categories" toml:"disabled_categories"`

	CacheSize int `json:"cache_size" yaml:"cache_size" toml:"cache_size"`
	// CachePath is the SQLite file for the persistent cache. Empty means the
	// default location in the XDG state directory, "off" disables it.
	CachePath       string `json:"cache_path" yaml:"cache_path" toml:"cache_path"`
	StoreMaxEntries int    `json:"store_max_entries" yaml:"store_max_entries" toml:"store_max_entries"`
	// RedisURL takes precedence over CachePath when set.
	RedisURL string `json:"redis_url" yaml:"redis_url" toml:"redis_url"`
	RedisTTL int    `json:"redis_ttl" yaml:"redis_ttl" toml:"redis_ttl"` // seconds

	DebounceMS      int `json:"debounce_ms" yaml:"debounce_ms" toml:"debounce_ms"`
	MaxAlternatives int `json:"max_alternatives" yaml:"max_alternatives" toml:"max_alternatives"`
}

var defaultConfig = Config{
	Language:           "en-US",
	EngineURL:          "http://localhost:8081",
	DisabledRules:      []string{"TO_DO_HYPHEN"},
	DisabledCategories: []string{"WIKIPEDIA", "TYPOGRAPHY"},
	CacheSize:          1000,
	StoreMaxEntries:    100000,
	DebounceMS:         100,
	MaxAlternatives:    3,
}

// Default returns a copy of the built-in configuration.
func Default() Config {
	cfg := defaultConfig
	cfg.DisabledRules = append([]string(nil), defaultConfig.DisabledRules...)
	cfg.DisabledCategories = append([]string(nil), defaultConfig.DisabledCategories...)
	return cfg
}

func Load(v any) (Config, error) {
	return Overlay(Default(), v)
}

// Overlay applies the fields present in v on top of base. v is anything
// that marshals to a JSON object, typically LSP initializationOptions.
func Overlay(base Config, v any) (Config, error) {
	cfg := base
	if v == nil {
		return cfg, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}

	return cfg, nil
}

// LoadFromJSON reads JSON from r into a Config.
func LoadFromJSON(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile reads a configuration file. The format follows the extension:
// .json, .yaml/.yml or .toml.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		cfg, err = LoadFromJSON(f)
	case ".yaml", ".yml":
		cfg = Default()
		err = yaml.NewDecoder(f).Decode(&cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case ".toml":
		cfg = Default()
		_, err = toml.NewDecoder(f).Decode(&cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Language == "" {
		errs = append(errs, errors.New("language must not be empty"))
	}
	if u, err := url.Parse(c.EngineURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("engine_url %q is not an http(s) URL", c.EngineURL))
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("cache_size must be positive, got %d", c.CacheSize))
	}
	if c.StoreMaxEntries < 0 {
		errs = append(errs, fmt.Errorf("store_max_entries must not be negative, got %d", c.StoreMaxEntries))
	}
	if c.RedisTTL < 0 {
		errs = append(errs, fmt.Errorf("redis_ttl must not be negative, got %d", c.RedisTTL))
	}
	if c.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("debounce_ms must not be negative, got %d", c.DebounceMS))
	}
	if c.MaxAlternatives < 0 {
		errs = append(errs, fmt.Errorf("max_alternatives must not be negative, got %d", c.MaxAlternatives))
	}
	return errors.Join(errs...)
}

func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

func (c Config) RedisExpiry() time.Duration {
	return time.Duration(c.RedisTTL) * time.Second
}

// PersistentCacheDisabled reports whether no persistent store should be used.
func (c Config) PersistentCacheDisabled() bool {
	return c.RedisURL == "" && strings.EqualFold(c.CachePath, CacheOff)
}
