// Package config provides centralized configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const fileName = "stepform.yml"

// Config holds all configuration values for stepform.
type Config struct {
	DataDir  string `mapstructure:"data_dir" yaml:"data_dir"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`
	Persist  bool   `mapstructure:"persist" yaml:"persist"`   // Record form events in embedded NATS
	MCPAddr  string `mapstructure:"mcp_addr" yaml:"mcp_addr"` // Listen address for `stepform serve`
	Theme    string `mapstructure:"theme" yaml:"theme"`
}

// Default returns the configuration used when no file or env var is set.
func Default() *Config {
	return &Config{
		DataDir:  ".stepform",
		LogLevel: "info",
		Persist:  true,
		MCPAddr:  "127.0.0.1:0",
		Theme:    "catppuccin-mocha",
	}
}

// keys maps each config key to its env var, used for explicit binding.
var keys = map[string]string{
	"data_dir":  "STEPFORM_DATA_DIR",
	"log_level": "STEPFORM_LOG_LEVEL",
	"log_file":  "STEPFORM_LOG_FILE",
	"persist":   "STEPFORM_PERSIST",
	"mcp_addr":  "STEPFORM_MCP_ADDR",
	"theme":     "STEPFORM_THEME",
}

// Load loads configuration with full precedence:
// CLI flags > ENV vars > project config > XDG global config > defaults.
// Flags are applied by callers on the returned value.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("stepform")

	def := Default()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("persist", def.Persist)
	v.SetDefault("mcp_addr", def.MCPAddr)
	v.SetDefault("theme", def.Theme)

	v.SetEnvPrefix("STEPFORM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit ENV bindings for better bool parsing
	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug, info, warn or error)", c.LogLevel)
	}
	if c.MCPAddr == "" {
		return fmt.Errorf("mcp_addr must not be empty")
	}
	return nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/stepform/stepform.yml or $XDG_CONFIG_HOME/stepform/stepform.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "stepform", fileName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "stepform", fileName)
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return fileName
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return write(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
