// file: internal/config/backend.go
// version: 1.0.0
// guid: 6c8e9354-1851-49a6-aa55-3db68c07e3db

package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultBackendTimeout bounds a single backend call when none is configured.
const DefaultBackendTimeout = 10 * time.Second

// ErrInvalidBackend marks a malformed backend definition.
var ErrInvalidBackend = errors.New("invalid backend config")

// BackendConfig describes one download backend.
type BackendConfig struct {
	Name     string        `mapstructure:"name" yaml:"name"`
	Kind     string        `mapstructure:"kind" yaml:"kind"` // deluge, transmission, sabnzbd
	Host     string        `mapstructure:"host" yaml:"host"`
	Port     int           `mapstructure:"port" yaml:"port"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	UseTLS   bool          `mapstructure:"use_tls" yaml:"use_tls"`
	URLBase  string        `mapstructure:"url_base" yaml:"url_base"`
	Category string        `mapstructure:"category" yaml:"category"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ApplyDefaults fills in the name, kind casing and timeout.
func (b *BackendConfig) ApplyDefaults() {
	b.Kind = strings.ToLower(strings.TrimSpace(b.Kind))
	if b.Name == "" {
		b.Name = b.Kind
	}
	if b.Timeout <= 0 {
		b.Timeout = DefaultBackendTimeout
	}
}

// Validate reports missing or malformed connection settings. Unknown kinds
// are left to the backend factory.
func (b BackendConfig) Validate() error {
	if b.Kind == "" {
		return fmt.Errorf("%w: kind is required", ErrInvalidBackend)
	}
	if b.Host == "" {
		return fmt.Errorf("%w: %s: host is required", ErrInvalidBackend, b.Name)
	}
	if strings.ContainsAny(b.Host, "/ ") {
		return fmt.Errorf("%w: %s: host %q must not contain a scheme or path", ErrInvalidBackend, b.Name, b.Host)
	}
	if b.Port < 1 || b.Port > 65535 {
		return fmt.Errorf("%w: %s: port %d out of range", ErrInvalidBackend, b.Name, b.Port)
	}
	switch b.Kind {
	case "deluge":
		if b.Password == "" {
			return fmt.Errorf("%w: %s: deluge requires a password", ErrInvalidBackend, b.Name)
		}
	case "sabnzbd":
		if b.APIKey == "" {
			return fmt.Errorf("%w: %s: sabnzbd requires an api_key", ErrInvalidBackend, b.Name)
		}
	}
	return nil
}

// HostPort returns host:port, bracketing IPv6 literals.
func (b BackendConfig) HostPort() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// BaseURL returns scheme://host:port plus the optional URL base.
func (b BackendConfig) BaseURL() string {
	scheme := "http"
	if b.UseTLS {
		scheme = "https"
	}
	base := strings.Trim(b.URLBase, "/")
	if base != "" {
		base = "/" + base
	}
	return fmt.Sprintf("%s://%s%s", scheme, b.HostPort(), base)
}
