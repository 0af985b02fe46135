// Package config provides unified configuration for the OpenAI-compatible
// gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (OAIGW_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Direct        DirectConfig        `yaml:"direct"`
	Alternate     AlternateConfig     `yaml:"alternate"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// DirectConfig holds settings for the direct, API-key authenticated
// backend.
type DirectConfig struct {
	BaseURL string            `yaml:"base_url"` // required
	APIKeys map[string]string `yaml:"api_keys"` // id -> key, round-robin pool
}

// AlternateConfig holds settings for the alternate, service-account
// authenticated backend fronted by the `[prefix]` virtual model ids.
type AlternateConfig struct {
	Enabled         bool              `yaml:"enabled"`          // default: false
	BaseURL         string            `yaml:"base_url"`         // required if enabled
	ModelPrefix     string            `yaml:"model_prefix"`     // default: "[v]"
	Models          []string          `yaml:"models"`           // model ids served by this backend
	ServiceAccounts map[string]string `yaml:"service_accounts"` // id -> path to JSON credentials
	Scopes          []string          `yaml:"scopes"`           // OAuth2 scopes requested for the token source
}

// CatalogConfig describes the base model set and which virtual model
// variants are synthesized for it.
type CatalogConfig struct {
	Models        []ModelEntryConfig `yaml:"models"`
	SearchEnabled bool               `yaml:"search_enabled"` // default: true
}

// ModelEntryConfig describes one base model entry in the catalog.
type ModelEntryConfig struct {
	ID       string `yaml:"id"`
	Category string `yaml:"category"`
}

// StorageConfig holds settings/quota persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds client authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`      // settings for type=jwt
}

// APIKeyConfig describes a single caller API key entry.
type APIKeyConfig struct {
	Key                string `yaml:"key"`
	KeyFile            string `yaml:"key_file"` // _file variant for key
	Subject            string `yaml:"subject"`
	ServiceTier        string `yaml:"service_tier"`
	SafetyFilteringOff bool   `yaml:"safety_filtering_off"`
	KeepAliveEnabled   bool   `yaml:"keep_alive_enabled"`
}

// JWTConfig holds JWKS-backed JWT authentication settings.
type JWTConfig struct {
	Issuer   string        `yaml:"issuer"`
	Audience string        `yaml:"audience"`
	JWKSURL  string        `yaml:"jwks_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"` // default: 10m
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Alternate: AlternateConfig{
			ModelPrefix: "[v]",
		},
		Catalog: CatalogConfig{
			SearchEnabled: true,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
			JWT: JWTConfig{
				CacheTTL: 10 * time.Minute,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
