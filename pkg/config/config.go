// Package config provides the server configuration for mockidp.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mockidp/mockidp/pkg/keys"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound = errors.New("configuration file not found")
	ErrInvalidYAML  = errors.New("invalid YAML syntax")
)

// ServerConfig configures a mock identity provider instance.
type ServerConfig struct {
	// Port is the TCP port to listen on. 0 selects an ephemeral port.
	Port int `json:"port" yaml:"port"`

	// TLS serves the endpoints over HTTPS with a freshly generated
	// self-signed certificate.
	TLS bool `json:"tls" yaml:"tls"`

	// Hostname is the host used in the default base URL when a request
	// carries no host indicator.
	Hostname string `json:"hostname" yaml:"hostname"`

	// Realm is the default realm used for programmatic token issuance.
	Realm string `json:"realm" yaml:"realm"`

	// Algorithm selects the signing algorithm of the instance's active
	// key: RS256, ES256 or HS256.
	Algorithm string `json:"algorithm" yaml:"algorithm"`

	// TokenLifetime overrides the default token validity, e.g. "30m".
	TokenLifetime string `json:"tokenLifetime,omitempty" yaml:"tokenLifetime,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	// LogFormat is text or json.
	LogFormat string `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`
}

// DefaultServerConfig returns the defaults: realm "master" served via
// HTTP on port 8000 with an RS256 key.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:      8000,
		Hostname:  "localhost",
		Realm:     "master",
		Algorithm: string(keys.DefaultAlgorithm),
	}
}

// LoadFromFile reads a ServerConfig from a YAML file. Unset fields fall
// back to the defaults.
func LoadFromFile(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultServerConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot produce a
// working instance.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Hostname == "" {
		return errors.New("hostname must not be empty")
	}
	if c.Realm == "" {
		return errors.New("realm must not be empty")
	}
	if _, err := keys.ParseAlgorithm(c.Algorithm); err != nil {
		return err
	}
	if c.TokenLifetime != "" {
		d, err := time.ParseDuration(c.TokenLifetime)
		if err != nil {
			return fmt.Errorf("invalid tokenLifetime: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("tokenLifetime must be positive, got %s", c.TokenLifetime)
		}
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logLevel %q (expected debug, info, warn or error)", c.LogLevel)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid logFormat %q (expected text or json)", c.LogFormat)
	}
	return nil
}

// BaseURL returns the default base URL implied by the configuration,
// used when a request carries no host indicator and for programmatic
// token issuance.
func (c *ServerConfig) BaseURL() string {
	scheme := "http://"
	if c.TLS {
		scheme = "https://"
	}
	return scheme + c.Hostname + ":" + strconv.Itoa(c.Port)
}
