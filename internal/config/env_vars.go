package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	AppName = "bookctl"

	defaultBaseURL    = "https://book-store-fastapi.onrender.com/"
	defaultTimeout    = 15 * time.Second
	defaultSecretKey  = "fallback-secret-key"
	defaultStorageKey = "root"
	defaultNamespace  = "bookstore"
	defaultSeenTTL    = 5 * time.Minute
)

// EnvVars holds every tunable. Values are read from the optional YAML file
// first and then overridden by environment variables.
type EnvVars struct {
	AppName          string        `yaml:"app_name" env:"APP_NAME"`
	Env              string        `yaml:"env" env:"ENV"`
	LogLevel         string        `yaml:"log_level" env:"BOOKSTORE_LOG_LEVEL"`
	LogPretty        bool          `yaml:"log_pretty" env:"BOOKSTORE_LOG_PRETTY"`
	BaseURL          string        `yaml:"api_url" env:"BOOKSTORE_API_URL"`
	Timeout          time.Duration `yaml:"timeout" env:"BOOKSTORE_TIMEOUT"`
	DataFolder       string        `yaml:"data_dir" env:"BOOKSTORE_DATA_DIR"`
	SecretKey        string        `yaml:"secret_key" env:"BOOKSTORE_SECRET_KEY"`
	StorageKey       string        `yaml:"storage_key" env:"BOOKSTORE_STORAGE_KEY"`
	PersistWhitelist []string      `yaml:"persist_whitelist" env:"BOOKSTORE_PERSIST_WHITELIST" envSeparator:","`
	Namespace        string        `yaml:"namespace" env:"BOOKSTORE_NAMESPACE"`
	RedisURL         string        `yaml:"sync_redis_url" env:"BOOKSTORE_SYNC_REDIS_URL"`
	SeenEventTTL     time.Duration `yaml:"seen_event_ttl" env:"BOOKSTORE_SEEN_EVENT_TTL"`
}

var _ Config = mainConfig{}

// Defaults returns the built-in configuration values.
func Defaults() *EnvVars {
	return &EnvVars{
		AppName:          "Book Store",
		Env:              "DEV",
		LogLevel:         "info",
		LogPretty:        true,
		BaseURL:          defaultBaseURL,
		Timeout:          defaultTimeout,
		DataFolder:       DefaultDataFolder(),
		SecretKey:        defaultSecretKey,
		StorageKey:       defaultStorageKey,
		PersistWhitelist: []string{"auth"},
		Namespace:        defaultNamespace,
		SeenEventTTL:     defaultSeenTTL,
	}
}

// Load reads the YAML file at path (when it exists) and applies environment
// overrides. An empty path uses DefaultConfigPath.
func Load(path string) (Config, error) {
	vars := Defaults()

	if path == "" {
		path = DefaultConfigPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, vars); err != nil {
				return nil, fmt.Errorf("[config Load] parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("[config Load] read %s: %w", path, err)
		}
	}

	if err := env.Parse(vars); err != nil {
		return nil, fmt.Errorf("[config Load] environment: %w", err)
	}
	return mainConfig{EnvVars: vars}, nil
}

// FromVars wraps explicit values, mostly for tests.
func FromVars(vars *EnvVars) Config {
	return mainConfig{EnvVars: vars}
}

// DefaultDataFolder is $HOME/.bookctl, or ./.bookctl when no home is known.
func DefaultDataFolder() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + AppName
	}
	return filepath.Join(home, "."+AppName)
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultDataFolder(), "config.yaml")
}

func (e *EnvVars) GetAppName() string {
	return e.AppName
}

func (e *EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Env)
}

func (e *EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e *EnvVars) GetLogPretty() bool {
	return e.LogPretty
}

// GetBaseURL returns the API base URL without a trailing slash.
func (e *EnvVars) GetBaseURL() string {
	return strings.TrimRight(e.BaseURL, "/")
}

func (e *EnvVars) GetTimeout() time.Duration {
	if e.Timeout <= 0 {
		return defaultTimeout
	}
	return e.Timeout
}

func (e *EnvVars) GetDataFolder() string {
	return e.DataFolder
}

// GetSecretKey returns the symmetric secret used to encrypt the stored session.
// The default is a fixed value shared by every installation.
func (e *EnvVars) GetSecretKey() string {
	if e.SecretKey == "" {
		return defaultSecretKey
	}
	return e.SecretKey
}

func (e *EnvVars) GetStorageKey() string {
	if e.StorageKey == "" {
		return defaultStorageKey
	}
	return e.StorageKey
}

func (e *EnvVars) GetPersistWhitelist() []string {
	return e.PersistWhitelist
}

func (e *EnvVars) GetNamespace() string {
	if e.Namespace == "" {
		return defaultNamespace
	}
	return e.Namespace
}

func (e *EnvVars) GetRedisURL() string {
	return e.RedisURL
}

func (e *EnvVars) GetSeenEventTTL() time.Duration {
	if e.SeenEventTTL <= 0 {
		return defaultSeenTTL
	}
	return e.SeenEventTTL
}
