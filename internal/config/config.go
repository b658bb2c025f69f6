// file: internal/config/config.go
// version: 2.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	LogLevel  string
	LogFormat string

	DatabasePath string
	DatabaseType string // "pebble" (default) or "sqlite"
	EnableSQLite bool   // Must be true to use SQLite (safety flag)

	Blacklist BlacklistConfig
	Server    ServerConfig

	// SessionTTL bounds how long a backend session token is reused.
	SessionTTL   time.Duration
	PollInterval time.Duration

	Backends []BackendConfig
}

// BlacklistConfig configures the retry governor.
type BlacklistConfig struct {
	Window     time.Duration
	MaxRetries int
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Listen    string
	RateLimit float64 // requests per second per client, 0 disables
	RateBurst int

	// Basic auth is enforced when Username is set.
	Username     string
	Password     string
	MaxBodyBytes int64
}

var AppConfig Config

// SetDefaults registers every default with viper.
func SetDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("database_type", "pebble")
	viper.SetDefault("database_path", "media-acquirer.db")
	viper.SetDefault("enable_sqlite3_i_know_the_risks", false)
	viper.SetDefault("blacklist.window", 30*24*time.Hour)
	viper.SetDefault("blacklist.max_retries", 3)
	viper.SetDefault("server.listen", ":8686")
	viper.SetDefault("server.rate_limit", 10.0)
	viper.SetDefault("server.rate_burst", 20)
	viper.SetDefault("server.max_body_bytes", 1<<20)
	viper.SetDefault("session_ttl", 20*time.Minute)
	viper.SetDefault("poll_interval", time.Minute)
}

// InitConfig initializes the application configuration from viper.
func InitConfig() error {
	SetDefaults()

	AppConfig = Config{
		LogLevel:     viper.GetString("log_level"),
		LogFormat:    viper.GetString("log_format"),
		DatabasePath: viper.GetString("database_path"),
		DatabaseType: viper.GetString("database_type"),
		EnableSQLite: viper.GetBool("enable_sqlite3_i_know_the_risks"),
		Blacklist: BlacklistConfig{
			Window:     viper.GetDuration("blacklist.window"),
			MaxRetries: viper.GetInt("blacklist.max_retries"),
		},
		Server: ServerConfig{
			Listen:    viper.GetString("server.listen"),
			RateLimit: viper.GetFloat64("server.rate_limit"),
			RateBurst: viper.GetInt("server.rate_burst"),

			Username:     viper.GetString("server.username"),
			Password:     viper.GetString("server.password"),
			MaxBodyBytes: viper.GetInt64("server.max_body_bytes"),
		},
		SessionTTL:   viper.GetDuration("session_ttl"),
		PollInterval: viper.GetDuration("poll_interval"),
	}

	// Normalize database type
	AppConfig.DatabaseType = strings.ToLower(AppConfig.DatabaseType)
	if AppConfig.DatabaseType == "sqlite3" {
		AppConfig.DatabaseType = "sqlite"
	}
	if AppConfig.DatabaseType == "" {
		AppConfig.DatabaseType = "pebble"
	}

	if err := viper.UnmarshalKey("backends", &AppConfig.Backends); err != nil {
		return fmt.Errorf("invalid backends section: %w", err)
	}
	seen := make(map[string]bool, len(AppConfig.Backends))
	for i := range AppConfig.Backends {
		b := &AppConfig.Backends[i]
		b.ApplyDefaults()
		if err := b.Validate(); err != nil {
			return fmt.Errorf("backends[%d]: %w", i, err)
		}
		if seen[b.Name] {
			return fmt.Errorf("backends[%d]: duplicate backend name %q", i, b.Name)
		}
		seen[b.Name] = true
	}

	if AppConfig.Server.Username != "" && AppConfig.Server.Password == "" {
		return fmt.Errorf("server.password is required when server.username is set")
	}
	if AppConfig.Blacklist.MaxRetries < 1 {
		return fmt.Errorf("blacklist.max_retries must be at least 1, got %d", AppConfig.Blacklist.MaxRetries)
	}
	if AppConfig.Blacklist.Window <= 0 {
		return fmt.Errorf("blacklist.window must be positive, got %s", AppConfig.Blacklist.Window)
	}
	return nil
}

// Backend returns the configured backend with the given name.
func (c *Config) Backend(name string) (BackendConfig, bool) {
	for _, b := range c.Backends {
		if b.Name == name {
			return b, true
		}
	}
	return BackendConfig{}, false
}
