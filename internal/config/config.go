package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	SyncConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetLogPretty() bool
}

type APIConfig interface {
	GetBaseURL() string
	GetTimeout() time.Duration
}

type StorageConfig interface {
	GetDataFolder() string
	GetSecretKey() string
	GetStorageKey() string
	GetPersistWhitelist() []string
}

type SyncConfig interface {
	GetNamespace() string
	GetRedisURL() string
	GetSeenEventTTL() time.Duration
}

type mainConfig struct {
	*EnvVars
}

// New returns the default configuration overlaid with environment variables.
func New() (Config, error) {
	return Load("")
}
