package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	DataDir    string          `mapstructure:"data_dir"`
	HealthAddr string          `mapstructure:"health_addr"`
	Logging    LoggingConfig   `mapstructure:"logging"`
	Secrets    SecretsConfig   `mapstructure:"secrets"`
	Swarm      SwarmConfig     `mapstructure:"swarm"`
	Provision  ProvisionConfig `mapstructure:"provision"`
	Sweep      SweepConfig     `mapstructure:"sweep"`
	Alerts     AlertsConfig    `mapstructure:"alerts"`
	Activity   ActivityConfig  `mapstructure:"activity"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
}

// SecretsConfig holds the encryption passphrase for sensitive data at
// rest (SSH keys, join tokens)
type SecretsConfig struct {
	Passphrase string `mapstructure:"passphrase"`
}

// SwarmConfig represents control-plane configuration
type SwarmConfig struct {
	// Host is the Docker Engine endpoint; empty uses DOCKER_HOST or
	// the default socket
	Host           string `mapstructure:"host"`
	ListenAddr     string `mapstructure:"listen_addr"`
	AdvertiseAddr  string `mapstructure:"advertise_addr"` // empty: autodetect
	OverlayNetwork string `mapstructure:"overlay_network"`
}

// SSHConfig represents SSH defaults for provisioning
type SSHConfig struct {
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// ProvisionConfig represents node provisioning configuration
type ProvisionConfig struct {
	ScriptPath    string        `mapstructure:"script_path"`
	MatchAttempts int           `mapstructure:"match_attempts"`
	MatchDelay    time.Duration `mapstructure:"match_delay"`
	SSH           SSHConfig     `mapstructure:"ssh"`
}

// SweepConfig represents reconciliation sweep configuration
type SweepConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	DrainGrace time.Duration `mapstructure:"drain_grace"`
}

// AlertsConfig represents alert emitter configuration
type AlertsConfig struct {
	Cooldown          time.Duration `mapstructure:"cooldown"`
	RecipientCacheTTL time.Duration `mapstructure:"recipient_cache_ttl"`
	CPUThreshold      float64       `mapstructure:"cpu_threshold"`
	MemoryThreshold   float64       `mapstructure:"memory_threshold"`
	NotifyTimeout     time.Duration `mapstructure:"notify_timeout"`
}

// ActivityConfig represents activity recorder configuration
type ActivityConfig struct {
	Buffer int `mapstructure:"buffer"`
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.Provision.MatchAttempts < 1 {
		return fmt.Errorf("provision.match_attempts must be at least 1, got %d", c.Provision.MatchAttempts)
	}

	if c.Alerts.CPUThreshold <= 0 || c.Alerts.CPUThreshold > 1 {
		return fmt.Errorf("alerts.cpu_threshold must be in (0, 1], got %f", c.Alerts.CPUThreshold)
	}
	if c.Alerts.MemoryThreshold <= 0 || c.Alerts.MemoryThreshold > 1 {
		return fmt.Errorf("alerts.memory_threshold must be in (0, 1], got %f", c.Alerts.MemoryThreshold)
	}

	return nil
}
