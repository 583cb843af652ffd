package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		BaseURL   string `yaml:"baseUrl"`
		SocketURL string `yaml:"socketUrl"`
	} `yaml:"server"`
	Auth struct {
		UserID string `yaml:"userId"`
		Token  string `yaml:"token"`
	} `yaml:"auth"`
	State struct {
		Path string `yaml:"path"`
	} `yaml:"state"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Timing struct {
		Debounce     string `yaml:"debounce"`
		RetryDelay   string `yaml:"retryDelay"`
		RedirectStep string `yaml:"redirectStep"`
	} `yaml:"timing"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
