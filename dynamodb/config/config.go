// Package config loads electro settings from defaults, an optional
// electro.yaml found by walking up from the working directory, and
// ELECTRO_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file searched for.
const FileName = "electro.yaml"

// Config holds electro settings.
type Config struct {
	// Registry is the path of the instance registry file.
	Registry string `mapstructure:"registry"`
	// DataDir is where local instances keep their data, one directory per
	// label. Set it to "" to keep local instances in memory.
	DataDir string      `mapstructure:"dataDir"`
	Log     LogConfig   `mapstructure:"log"`
	AWS     AWSConfig   `mapstructure:"aws"`
	Serve   ServeConfig `mapstructure:"serve"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AWSConfig holds defaults for instances that do not set their own.
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type ServeConfig struct {
	Port int `mapstructure:"port"`
}

// Load reads the configuration. dir is where the search for electro.yaml
// starts; empty means the working directory.
func Load(dir string) (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	v.SetDefault("registry", filepath.Join(home, ".electro", "registry.yaml"))
	v.SetDefault("dataDir", filepath.Join(home, ".electro", "data"))
	v.SetDefault("log.level", "info")
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("serve.port", 8080)

	v.SetEnvPrefix("ELECTRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := FindFile(dir); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Registry == "" {
		return errors.New("registry path must not be empty")
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port must be between 0 and 65535, got %d", c.Serve.Port)
	}
	return nil
}

// FindFile searches for electro.yaml walking up from dir to the filesystem
// root. Returns "" if not found.
func FindFile(dir string) string {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = wd
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
