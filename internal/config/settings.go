// Package config loads settings for the dirwatch server binary from an
// optional YAML file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort        = 8344
	DefaultHistorySize = 128
	DefaultLogLevel    = "info"
)

type Settings struct {
	Port        int      `yaml:"port"`
	AuthToken   string   `yaml:"auth_token"`
	LogLevel    string   `yaml:"log_level"`
	Directories []string `yaml:"directories"`
	HistorySize int      `yaml:"history_size"`
}

// Load reads path if it is non-empty and exists, then applies environment
// overrides and defaults. A missing file with an empty path is not an error;
// an unreadable or malformed file is.
func Load(path string) (Settings, error) {
	settings := Settings{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&settings)
	applyDefaults(&settings)
	return settings, nil
}

func applyEnv(settings *Settings) {
	if raw := os.Getenv("DIRWATCH_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 {
			settings.Port = port
		}
	}
	if token := os.Getenv("DIRWATCH_AUTH_TOKEN"); token != "" {
		settings.AuthToken = token
	}
	if level := os.Getenv("DIRWATCH_LOG_LEVEL"); level != "" {
		settings.LogLevel = level
	}
	if raw := os.Getenv("DIRWATCH_DIRS"); raw != "" {
		dirs := make([]string, 0)
		for _, dir := range strings.Split(raw, ",") {
			dir = strings.TrimSpace(dir)
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
		if len(dirs) > 0 {
			settings.Directories = dirs
		}
	}
	if raw := os.Getenv("DIRWATCH_HISTORY_SIZE"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			settings.HistorySize = size
		}
	}
}

func applyDefaults(settings *Settings) {
	if settings.Port <= 0 {
		settings.Port = DefaultPort
	}
	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}
	if settings.HistorySize <= 0 {
		settings.HistorySize = DefaultHistorySize
	}
}
