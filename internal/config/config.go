// Package config loads gateway configuration from a JSON file plus
// environment overrides.
//
// Sources, later ones winning:
//   - the JSON file named by --config or PROXMOX_MCP_CONFIG
//   - a .env file in the working directory, if present
//   - PROXMOX_* / LOG_* environment variables
//
// Credentials never come from flags, only the file or environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// EnvConfigPath names the config file when no flag is given.
const EnvConfigPath = "PROXMOX_MCP_CONFIG"

// Config holds all gateway settings.
type Config struct {
	Proxmox ProxmoxConfig `json:"proxmox"`
	Auth    AuthConfig    `json:"auth"`
	Logging LoggingConfig `json:"logging"`
	Metrics MetricsConfig `json:"metrics"`
}

// ProxmoxConfig describes the API endpoint to connect to.
type ProxmoxConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	VerifySSL   bool   `json:"verify_ssl"`
	Fingerprint string `json:"fingerprint"`
	// Timeout for individual API calls, in seconds.
	Timeout int `json:"timeout"`
}

// AuthConfig carries API credentials: either a token pair or a
// user/password combination.
type AuthConfig struct {
	User       string `json:"user"`
	TokenName  string `json:"token_name"`
	TokenValue string `json:"token_value"`
	Password   string `json:"password"`
}

// LoggingConfig mirrors the logging package's settings.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// MetricsConfig controls the optional Prometheus listener. An empty
// address disables it.
type MetricsConfig struct {
	Addr string `json:"addr"`
}

// Load reads configuration from path (or $PROXMOX_MCP_CONFIG when path
// is empty), then applies environment overrides. A missing file is not
// an error as long as the environment supplies the connection settings.
func Load(path string) (*Config, error) {
	// .env is optional; keeps local development out of the shell profile.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded environment from .env file")
	}

	cfg := &Config{
		Proxmox: ProxmoxConfig{Port: 8006, VerifySSL: true, Timeout: 30},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.Proxmox.Host == "" {
		return fmt.Errorf("proxmox host is required")
	}
	hasToken := c.Auth.TokenName != "" && c.Auth.TokenValue != ""
	hasPassword := c.Auth.User != "" && c.Auth.Password != ""
	if !hasToken && !hasPassword {
		return fmt.Errorf("either an API token (user, token_name, token_value) or a password is required")
	}
	if hasToken && c.Auth.User == "" {
		return fmt.Errorf("auth user is required with token credentials")
	}
	return nil
}

// APIHost returns the endpoint handed to the API client: the bare host
// gets the configured port attached; hosts already carrying a scheme
// or port pass through untouched.
func (c *Config) APIHost() string {
	host := c.Proxmox.Host
	if strings.Contains(host, "://") || strings.Contains(host, ":") {
		return host
	}
	return fmt.Sprintf("%s:%d", host, c.Proxmox.Port)
}

// APITimeout returns the call timeout as a duration.
func (c *Config) APITimeout() time.Duration {
	if c.Proxmox.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Proxmox.Timeout) * time.Second
}

func applyEnv(cfg *Config) {
	setString(&cfg.Proxmox.Host, "PROXMOX_HOST")
	setInt(&cfg.Proxmox.Port, "PROXMOX_PORT")
	setBool(&cfg.Proxmox.VerifySSL, "PROXMOX_VERIFY_SSL")
	setString(&cfg.Proxmox.Fingerprint, "PROXMOX_FINGERPRINT")
	setInt(&cfg.Proxmox.Timeout, "PROXMOX_TIMEOUT")

	setString(&cfg.Auth.User, "PROXMOX_USER")
	setString(&cfg.Auth.TokenName, "PROXMOX_TOKEN_NAME")
	setString(&cfg.Auth.TokenValue, "PROXMOX_TOKEN_VALUE")
	setString(&cfg.Auth.Password, "PROXMOX_PASSWORD")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Metrics.Addr, "METRICS_ADDR")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("variable", key).Str("value", v).Msg("Ignoring non-numeric environment override")
		return
	}
	*dst = n
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("variable", key).Str("value", v).Msg("Ignoring non-boolean environment override")
		return
	}
	*dst = b
}
