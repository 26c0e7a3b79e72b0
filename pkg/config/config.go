// Package config loads vmdeck client settings from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all client settings.
type Config struct {
	// ServerURL is the websocket base URL of the agent server, e.g. "ws://127.0.0.1:8040".
	ServerURL string `yaml:"server_url"`
	VideoPath string `yaml:"video_path"`
	AgentPath string `yaml:"agent_path"`

	// Reconnect policy, shared by both channels (each keeps its own counters).
	ReconnectBaseMS int `yaml:"reconnect_base_ms"`
	ReconnectCapMS  int `yaml:"reconnect_cap_ms"`
	MaxReconnects   int `yaml:"max_reconnects"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

func defaults() *Config {
	return &Config{
		ServerURL:       "ws://127.0.0.1:8040",
		VideoPath:       "/ws/stream",
		AgentPath:       "/ws/agent",
		ReconnectBaseMS: 1000,
		ReconnectCapMS:  30000,
		MaxReconnects:   10,
		LogFile:         "vmdeck.log",
		LogLevel:        "info",
	}
}

// Load builds a Config from defaults, an optional YAML file at path (skipped
// when path is empty), and VMDECK_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := getEnv("VMDECK_SERVER_URL", ""); v != "" {
		cfg.ServerURL = v
	}
	if v := getEnv("VMDECK_VIDEO_PATH", ""); v != "" {
		cfg.VideoPath = v
	}
	if v := getEnv("VMDECK_AGENT_PATH", ""); v != "" {
		cfg.AgentPath = v
	}
	if v := getEnv("VMDECK_LOG_FILE", ""); v != "" {
		cfg.LogFile = v
	}
	if v := getEnv("VMDECK_LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnv("VMDECK_MAX_RECONNECTS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxReconnects = n
		}
	}

	return cfg, nil
}

// VideoURL returns the full websocket URL of the video stream endpoint.
func (c *Config) VideoURL() string {
	return strings.TrimSuffix(c.ServerURL, "/") + c.VideoPath
}

// AgentURL returns the full websocket URL of the agent endpoint.
func (c *Config) AgentURL() string {
	return strings.TrimSuffix(c.ServerURL, "/") + c.AgentPath
}

// ReconnectBase returns the initial reconnect backoff delay.
func (c *Config) ReconnectBase() time.Duration {
	return time.Duration(c.ReconnectBaseMS) * time.Millisecond
}

// ReconnectCap returns the maximum reconnect backoff delay.
func (c *Config) ReconnectCap() time.Duration {
	return time.Duration(c.ReconnectCapMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
