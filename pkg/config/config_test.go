package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	// An explicitly named missing file is an error
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
data_dir: /tmp/flotilla-test
logging:
  level: debug
  format: json
swarm:
  advertise_addr: 192.168.1.10
provision:
  match_attempts: 3
  match_delay: 2s
alerts:
  cooldown: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Explicit values
	assert.Equal(t, "/tmp/flotilla-test", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "192.168.1.10", cfg.Swarm.AdvertiseAddr)
	assert.Equal(t, 3, cfg.Provision.MatchAttempts)
	assert.Equal(t, 2*time.Second, cfg.Provision.MatchDelay)
	assert.Equal(t, 30*time.Minute, cfg.Alerts.Cooldown)

	// Defaults fill the gaps
	assert.Equal(t, "0.0.0.0:2377", cfg.Swarm.ListenAddr)
	assert.Equal(t, "flotilla-overlay", cfg.Swarm.OverlayNetwork)
	assert.Equal(t, 22, cfg.Provision.SSH.Port)
	assert.Equal(t, 5*time.Minute, cfg.Alerts.RecipientCacheTTL)
	assert.InDelta(t, 0.90, cfg.Alerts.CPUThreshold, 0.001)
	assert.Equal(t, 5*time.Second, cfg.Sweep.DrainGrace)
	assert.Equal(t, 100, cfg.Activity.Buffer)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DataDir: "/tmp",
			Logging: LoggingConfig{Level: "info", Format: "json"},
			Provision: ProvisionConfig{
				MatchAttempts: 6,
			},
			Alerts: AlertsConfig{
				CPUThreshold:    0.9,
				MemoryThreshold: 0.9,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty data dir",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "data_dir",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "zero match attempts",
			mutate:  func(c *Config) { c.Provision.MatchAttempts = 0 },
			wantErr: "match_attempts",
		},
		{
			name:    "cpu threshold above one",
			mutate:  func(c *Config) { c.Alerts.CPUThreshold = 1.5 },
			wantErr: "cpu_threshold",
		},
		{
			name:    "negative memory threshold",
			mutate:  func(c *Config) { c.Alerts.MemoryThreshold = -0.1 },
			wantErr: "memory_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
