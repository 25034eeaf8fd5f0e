package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"proxmox": {"host": "pve.example.com", "port": 8007, "verify_ssl": false},
		"auth": {"user": "root@pam", "token_name": "mcp", "token_value": "secret"},
		"logging": {"level": "debug"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pve.example.com", cfg.Proxmox.Host)
	assert.Equal(t, 8007, cfg.Proxmox.Port)
	assert.False(t, cfg.Proxmox.VerifySSL, "verify_ssl should be overridden to false")
	assert.Equal(t, "mcp", cfg.Auth.TokenName)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format, "format should default to json")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `{
		"proxmox": {"host": "file-host"},
		"auth": {"user": "root@pam", "token_name": "mcp", "token_value": "secret"}
	}`)
	t.Setenv("PROXMOX_HOST", "env-host")
	t.Setenv("PROXMOX_VERIFY_SSL", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Proxmox.Host)
	assert.False(t, cfg.Proxmox.VerifySSL, "verify_ssl not overridden by environment")
}

func TestLoadFromEnvironmentOnly(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("PROXMOX_HOST", "pve1.lan")
	t.Setenv("PROXMOX_USER", "root@pam")
	t.Setenv("PROXMOX_PASSWORD", "hunter2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "pve1.lan", cfg.Proxmox.Host)
	assert.Equal(t, "hunter2", cfg.Auth.Password)
	assert.Equal(t, 8006, cfg.Proxmox.Port, "port should default to 8006")
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"missing host", Config{Auth: AuthConfig{User: "root@pam", Password: "x"}}, false},
		{"no credentials", Config{Proxmox: ProxmoxConfig{Host: "h"}}, false},
		{"token without user", Config{
			Proxmox: ProxmoxConfig{Host: "h"},
			Auth:    AuthConfig{TokenName: "t", TokenValue: "v"},
		}, false},
		{"token auth", Config{
			Proxmox: ProxmoxConfig{Host: "h"},
			Auth:    AuthConfig{User: "root@pam", TokenName: "t", TokenValue: "v"},
		}, true},
		{"password auth", Config{
			Proxmox: ProxmoxConfig{Host: "h"},
			Auth:    AuthConfig{User: "root@pam", Password: "x"},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAPIHost(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"pve1.lan", 8006, "pve1.lan:8006"},
		{"pve1.lan:9006", 8006, "pve1.lan:9006"},
		{"https://pve1.lan", 8006, "https://pve1.lan"},
	}
	for _, tt := range tests {
		cfg := Config{Proxmox: ProxmoxConfig{Host: tt.host, Port: tt.port}}
		assert.Equal(t, tt.want, cfg.APIHost())
	}
}

func TestAPITimeout(t *testing.T) {
	cfg := Config{Proxmox: ProxmoxConfig{Timeout: 45}}
	assert.Equal(t, 45*time.Second, cfg.APITimeout())

	cfg.Proxmox.Timeout = 0
	assert.Equal(t, 30*time.Second, cfg.APITimeout())
}

func TestLoadRejectsUnreadableFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err, "missing explicit config file should fail")
}
