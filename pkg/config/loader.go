package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/flotilla")
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides (FLOTILLA_SWARM_LISTEN_ADDR etc.)
	v.SetEnvPrefix("FLOTILLA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "/var/lib/flotilla")
	v.SetDefault("health_addr", ":9090")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Swarm defaults
	v.SetDefault("swarm.listen_addr", "0.0.0.0:2377")
	v.SetDefault("swarm.overlay_network", "flotilla-overlay")

	// Provisioning defaults
	v.SetDefault("provision.script_path", "/etc/flotilla/setup-worker.sh")
	v.SetDefault("provision.match_attempts", 6)
	v.SetDefault("provision.match_delay", "5s")
	v.SetDefault("provision.ssh.port", 22)
	v.SetDefault("provision.ssh.user", "root")
	v.SetDefault("provision.ssh.connect_timeout", "10s")

	// Sweep defaults
	v.SetDefault("sweep.interval", "60s")
	v.SetDefault("sweep.drain_grace", "5s")

	// Alert defaults
	v.SetDefault("alerts.cooldown", "15m")
	v.SetDefault("alerts.recipient_cache_ttl", "5m")
	v.SetDefault("alerts.cpu_threshold", 0.90)
	v.SetDefault("alerts.memory_threshold", 0.90)
	v.SetDefault("alerts.notify_timeout", "10s")

	// Activity defaults
	v.SetDefault("activity.buffer", 100)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
