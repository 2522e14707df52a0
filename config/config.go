package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	MCP     MCPConfig     `mapstructure:"mcp"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	AI      AIConfig      `mapstructure:"ai"`
}

// ServerConfig holds REST/WebSocket server configuration
type ServerConfig struct {
	HTTPPort    int      `mapstructure:"http_port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// MCPConfig holds the optional MCP transport configuration
type MCPConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// SandboxConfig holds code execution configuration
type SandboxConfig struct {
	TimeoutSec      int               `mapstructure:"timeout_sec"`
	Interpreter     string            `mapstructure:"interpreter"`
	InterpreterArgs []string          `mapstructure:"interpreter_args"`
	Preload         []string          `mapstructure:"preload"`
	AllowedImports  []string          `mapstructure:"allowed_imports"`
	BlockedKeywords []string          `mapstructure:"blocked_keywords"`
	Environment     map[string]string `mapstructure:"environment"`
}

// StorageConfig holds the SQLite location
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// AIConfig holds the optional LLM provider used for graph generation
type AIConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

// Default sandbox policy. Preload entries are emitted verbatim after "import ".
var (
	DefaultPreload = []string{"networkx as nx", "numpy as np", "math", "random", "json"}

	DefaultAllowedImports = []string{"networkx", "nx", "numpy", "np", "math", "random", "json"}

	DefaultBlockedKeywords = []string{
		"import os",
		"import sys",
		"import subprocess",
		"import __builtin__",
		"import builtins",
		"__import__",
		"eval(",
		"exec(",
		"open(",
		"file(",
		"input(",
		"raw_input(",
	}
)

// New loads and validates the application configuration
func New() (*Config, error) {
	return Load(viper.New())
}

// Load reads configuration through the given viper instance
func Load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("GRAPHBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("server.cors_origins", []string{"http://localhost:8080", "http://127.0.0.1:8080"})

	v.SetDefault("mcp.enabled", false)
	v.SetDefault("mcp.transport", "stdio")
	v.SetDefault("mcp.http_port", 8081)

	v.SetDefault("sandbox.timeout_sec", 10)
	v.SetDefault("sandbox.interpreter", "python3")
	v.SetDefault("sandbox.interpreter_args", []string{"-B"})
	v.SetDefault("sandbox.preload", DefaultPreload)
	v.SetDefault("sandbox.allowed_imports", DefaultAllowedImports)
	v.SetDefault("sandbox.blocked_keywords", DefaultBlockedKeywords)

	v.SetDefault("storage.path", "data/graphbox")

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")

	v.SetDefault("ai.provider", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid server.http_port: %d", c.Server.HTTPPort)
	}

	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			continue
		}
		if (!strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://")) || strings.Contains(origin, "*") {
			return fmt.Errorf("invalid server.cors_origins entry: %q, must be \"*\" or an http(s) origin", origin)
		}
	}

	if c.MCP.Enabled {
		if c.MCP.Transport != "stdio" && c.MCP.Transport != "http" {
			return fmt.Errorf("invalid mcp.transport: %s, must be 'stdio' or 'http'", c.MCP.Transport)
		}
		if c.MCP.Transport == "http" && c.MCP.HTTPPort == c.Server.HTTPPort {
			return fmt.Errorf("mcp.http_port must differ from server.http_port, both are %d", c.MCP.HTTPPort)
		}
	}

	if c.Sandbox.TimeoutSec <= 0 {
		return fmt.Errorf("sandbox.timeout_sec must be positive, got: %d", c.Sandbox.TimeoutSec)
	}

	if strings.TrimSpace(c.Sandbox.Interpreter) == "" {
		return fmt.Errorf("sandbox.interpreter must not be empty")
	}

	if len(c.Sandbox.AllowedImports) == 0 {
		return fmt.Errorf("sandbox.allowed_imports must not be empty")
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.AI.Provider {
	case "", "openai":
	default:
		return fmt.Errorf("unsupported ai.provider: %s", c.AI.Provider)
	}

	return nil
}

// GetTimeout returns the execution timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Sandbox.TimeoutSec) * time.Second
}

// AIEnabled reports whether an LLM provider is fully configured
func (c *Config) AIEnabled() bool {
	return c.AI.Provider != "" && c.AI.APIKey != ""
}
