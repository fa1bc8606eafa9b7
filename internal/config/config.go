// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads bearctl settings from a file, BEARBUS_* environment
// variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/westwoodrobotics/bearbus/pkg/bear"
)

// EnvPrefix prefixes every environment variable, e.g. BEARBUS_BUS_PORT.
const EnvPrefix = "BEARBUS"

// BusConfig selects the medium and the exchange policy.
type BusConfig struct {
	Port          string        `mapstructure:"port" yaml:"port"`
	Baud          int           `mapstructure:"baud" yaml:"baud"`
	URL           string        `mapstructure:"url" yaml:"url"`
	Username      string        `mapstructure:"username" yaml:"username"`
	SkipTLSVerify bool          `mapstructure:"skipTLSVerify" yaml:"skipTLSVerify"`
	TCP           string        `mapstructure:"tcp" yaml:"tcp"`
	Simulate      bool          `mapstructure:"simulate" yaml:"simulate"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries       int           `mapstructure:"retries" yaml:"retries"`
	MinCommandGap time.Duration `mapstructure:"minCommandGap" yaml:"minCommandGap"`
	AllowWarnings bool          `mapstructure:"allowWarnings" yaml:"allowWarnings"`
}

// ClientConfig returns the exchange policy for a bear.Client.
func (b BusConfig) ClientConfig() bear.Config {
	cfg := bear.Config{
		Timeout:       b.Timeout,
		Retries:       b.Retries,
		MinCommandGap: b.MinCommandGap,
		AllowWarnings: b.AllowWarnings,
	}
	// Only a local port runs at a known line rate.
	if b.Port != "" {
		cfg.BaudRate = b.Baud
	}
	return cfg
}

// LumberjackConfig configures log file rotation
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize" yaml:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge" yaml:"maxAge"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// LoggingConfig configures log level and outputs
type LoggingConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`
	Format string           `mapstructure:"format" yaml:"format"`
	File   LumberjackConfig `mapstructure:"file" yaml:"file"`
}

// TraceConfig configures the exchange trace file
type TraceConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	Path string `mapstructure:"path" yaml:"path"`
}

// Config is the top-level configuration
type Config struct {
	Bus     BusConfig     `mapstructure:"bus" yaml:"bus"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Trace   TraceConfig   `mapstructure:"trace" yaml:"trace"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"port":           "bus.port",
	"baud":           "bus.baud",
	"url":            "bus.url",
	"username":       "bus.username",
	"no-ssl-verify":  "bus.skipTLSVerify",
	"tcp":            "bus.tcp",
	"simulate":       "bus.simulate",
	"timeout":        "bus.timeout",
	"retries":        "bus.retries",
	"command-gap":    "bus.minCommandGap",
	"allow-warnings": "bus.allowWarnings",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"log-file":       "logging.file.filename",
	"trace-file":     "trace.file",
	"metrics-addr":   "metrics.addr",
}

// Load reads configuration from a YAML/TOML/JSON file and the environment.
// When path is empty, BEARBUS_CONFIG is tried, then bearbus.* in the
// working directory and in the user config directory; a missing file is
// not an error. Flags that were set explicitly override everything.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("bearbus")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "bearbus"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Dump renders the configuration as YAML that Load accepts.
func (c *Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate rejects settings no bus can run with.
func (c *Config) Validate() error {
	if c.Bus.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Bus.Baud)
	}
	if c.Bus.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Bus.Retries)
	}
	if c.Bus.Timeout < 0 || c.Bus.MinCommandGap < 0 {
		return errors.New("timeout and command gap must not be negative")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q (use console or json)", c.Logging.Format)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bus.port", "")
	v.SetDefault("bus.baud", 8000000)
	v.SetDefault("bus.url", "")
	v.SetDefault("bus.username", "")
	v.SetDefault("bus.skipTLSVerify", false)
	v.SetDefault("bus.tcp", "")
	v.SetDefault("bus.simulate", false)
	v.SetDefault("bus.timeout", "0s")
	v.SetDefault("bus.retries", 2)
	v.SetDefault("bus.minCommandGap", "0s")
	v.SetDefault("bus.allowWarnings", false)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 20)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 14)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("trace.file", "")

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")
}
