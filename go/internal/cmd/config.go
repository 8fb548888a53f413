package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/scorecast/go/internal/gateway"
)

// Config is the server configuration, loaded from an optional YAML file with
// environment variable overrides for the basics. Durations are whole seconds.
type Config struct {
	Server struct {
		Port                string `yaml:"port"`
		ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs"`
	} `yaml:"server"`

	Gateway struct {
		WriteTimeoutSecs int   `yaml:"write_timeout_secs"`
		ReadTimeoutSecs  int   `yaml:"read_timeout_secs"`
		PingIntervalSecs int   `yaml:"ping_interval_secs"`
		MaxMessageSize   int64 `yaml:"max_message_size"`
		SendBufferSize   int   `yaml:"send_buffer_size"`
		BroadcastBuffer  int   `yaml:"broadcast_buffer"`
	} `yaml:"gateway"`

	Cors struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

func defaultAppConfig() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeoutSecs = 10
	cfg.Cors.AllowedOrigins = []string{"*"}
	return cfg
}

// loadConfig reads the YAML config at path on top of the defaults, then
// applies environment overrides. A missing file is not an error; env-only
// deployments are fine.
func loadConfig(path string) (Config, error) {
	cfg := defaultAppConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	return cfg, nil
}

func (c Config) shutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSecs) * time.Second
}

// connectionConfig maps the loaded config onto the gateway's websocket
// settings, falling back to the gateway defaults for anything unset.
func (c Config) connectionConfig() gateway.ConnectionConfig {
	conn := gateway.DefaultConnectionConfig()
	if c.Gateway.WriteTimeoutSecs > 0 {
		conn.WriteTimeout = time.Duration(c.Gateway.WriteTimeoutSecs) * time.Second
	}
	if c.Gateway.ReadTimeoutSecs > 0 {
		conn.ReadTimeout = time.Duration(c.Gateway.ReadTimeoutSecs) * time.Second
	}
	if c.Gateway.PingIntervalSecs > 0 {
		conn.PingInterval = time.Duration(c.Gateway.PingIntervalSecs) * time.Second
	}
	if c.Gateway.MaxMessageSize > 0 {
		conn.MaxMessageSize = c.Gateway.MaxMessageSize
	}
	if c.Gateway.SendBufferSize > 0 {
		conn.SendBufferSize = c.Gateway.SendBufferSize
	}
	if c.Gateway.BroadcastBuffer > 0 {
		conn.BroadcastBuffer = c.Gateway.BroadcastBuffer
	}
	return conn
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
