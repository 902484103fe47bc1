package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, time.Hour, cfg.Session.Timeout)
				assert.Equal(t, int64(10<<20), cfg.Upload.MaxFileSize)
				assert.Equal(t, []string{".csv", ".xlsx"}, cfg.Upload.AllowedExtensions)
				assert.Equal(t, "plotly_white", cfg.Visualization.Template)
				assert.Equal(t, "x unified", cfg.Visualization.HoverMode)
				assert.Equal(t, 800, cfg.Visualization.ChartWidth)
				assert.Equal(t, 500, cfg.Visualization.ChartHeight)
				assert.Equal(t, DefaultUsersFile, cfg.Paths.UsersFile)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"DASH_SERVER_PORT":                 "9090",
				"DASH_SESSION_TIMEOUT":             "30m",
				"DASH_SECURITY_ALLOWED_ORIGINS":    "http://a.test,http://b.test",
				"DASH_SECURITY_RATE_LIMIT_ENABLED": "false",
				"DASH_UPLOAD_ALLOWED_EXTENSIONS":   "CSV",
				"DASH_VISUALIZATION_TOP_N_DEFAULT": "5",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Minute, cfg.Session.Timeout)
				assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
				assert.False(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, []string{".csv"}, cfg.Upload.AllowedExtensions)
				assert.Equal(t, 5, cfg.Visualization.TopNDefault)
			},
		},
		{
			name: "file values apply and env wins",
			file: "server:\n  port: 7000\n  read_timeout: 5s\nlogging:\n  level: debug\n",
			env:  map[string]string{"DASH_SERVER_PORT": "7001"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7001, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "absent keys keep defaults")
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"DASH_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "unparseable duration",
			env:     map[string]string{"DASH_SESSION_TIMEOUT": "soon"},
			wantErr: true,
		},
		{
			name:    "malformed file",
			file:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DASH_CONFIG_FILE", "")
			if tt.file != "" {
				path := filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0644))
				t.Setenv("DASH_CONFIG_FILE", path)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"no read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, "read timeout"},
		{"cors without origins", func(c *Config) { c.Security.AllowedOrigins = nil }, "allowed origin"},
		{"cors disabled without origins", func(c *Config) {
			c.Security.EnableCORS = false
			c.Security.AllowedOrigins = nil
		}, ""},
		{"short session secret", func(c *Config) { c.Security.SessionSecret = "short" }, "session secret"},
		{"no session timeout", func(c *Config) { c.Session.Timeout = 0 }, "session timeout"},
		{"no upload size", func(c *Config) { c.Upload.MaxFileSize = 0 }, "max file size"},
		{"no extensions", func(c *Config) { c.Upload.AllowedExtensions = nil }, "extension"},
		{"top n above max", func(c *Config) { c.Visualization.TopNDefault = 60 }, "top-n"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateNormalizesExtensions(t *testing.T) {
	cfg := Default()
	cfg.Upload.AllowedExtensions = []string{"CSV", " .XLSX "}
	cfg.Logging.Format = "xml"

	require.NoError(t, cfg.validate())
	assert.Equal(t, []string{".csv", ".xlsx"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestAddress(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9000
	assert.Equal(t, "127.0.0.1:9000", cfg.Address())
}
