package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "DIYASSIST_"

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Store     StoreConfig     `yaml:"store"`
	DB        DBConfig        `yaml:"db"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Agent     AgentConfig     `yaml:"agent"`
	Images    ImagesConfig    `yaml:"images"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TransportConfig selects how the server is reached: "http" serves REST and
// MCP over HTTP, "stdio" serves MCP on stdin/stdout.
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
	// DefaultTenant is used for every request when auth is disabled.
	DefaultTenant string `yaml:"default_tenant"`
}

// StoreConfig picks the storage backend: "sqlite" or "mongo".
type StoreConfig struct {
	Driver string `yaml:"driver"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// AgentConfig picks the conversational agent: "openai" or "echo".
type AgentConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

type ImagesConfig struct {
	Model string `yaml:"model"`
	Size  string `yaml:"size"`
}

// RateLimitConfig throttles chat routes per tenant. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type TracingConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Transport: TransportConfig{Mode: "http"},
		Auth:      AuthConfig{DefaultTenant: "default"},
		Store:     StoreConfig{Driver: "sqlite"},
		DB:        DBConfig{Path: "diyassist.db"},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "diyassist",
			ConnectTimeout: 10 * time.Second,
		},
		Agent:     AgentConfig{Provider: "echo", Model: "gpt-4o-mini"},
		Images:    ImagesConfig{Model: "dall-e-3", Size: "1024x1024"},
		RateLimit: RateLimitConfig{RPS: 5, Burst: 10},
		Tracing:   TracingConfig{Insecure: true},
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(envPrefix + "CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	// The conventional variable works when nothing more specific is set.
	if cfg.Agent.APIKey == "" {
		cfg.Agent.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and unusable settings.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport.mode %q: want http or stdio", c.Transport.Mode)
	}
	switch c.Store.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("db.path is required for the sqlite store")
		}
	case "mongo":
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("mongo.uri and mongo.database are required for the mongo store")
		}
	default:
		return fmt.Errorf("invalid store.driver %q: want sqlite or mongo", c.Store.Driver)
	}
	switch c.Agent.Provider {
	case "echo":
	case "openai":
		if c.Agent.APIKey == "" {
			return fmt.Errorf("agent.api_key (or OPENAI_API_KEY) is required for the openai agent")
		}
	default:
		return fmt.Errorf("invalid agent.provider %q: want openai or echo", c.Agent.Provider)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if !c.Auth.Enabled && c.Auth.DefaultTenant == "" {
		return fmt.Errorf("auth.default_tenant is required when auth is disabled")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return fmt.Errorf("ratelimit.burst must be at least 1")
	}
	return nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"SERVER_HOST":         &cfg.Server.Host,
		"TRANSPORT_MODE":      &cfg.Transport.Mode,
		"AUTH_DEFAULT_TENANT": &cfg.Auth.DefaultTenant,
		"STORE_DRIVER":        &cfg.Store.Driver,
		"DB_PATH":             &cfg.DB.Path,
		"MONGO_URI":           &cfg.Mongo.URI,
		"MONGO_DATABASE":      &cfg.Mongo.Database,
		"AGENT_PROVIDER":      &cfg.Agent.Provider,
		"AGENT_MODEL":         &cfg.Agent.Model,
		"AGENT_API_KEY":       &cfg.Agent.APIKey,
		"AGENT_BASE_URL":      &cfg.Agent.BaseURL,
		"IMAGES_MODEL":        &cfg.Images.Model,
		"IMAGES_SIZE":         &cfg.Images.Size,
		"TRACING_ENDPOINT":    &cfg.Tracing.Endpoint,
		"LOG_LEVEL":           &cfg.Log.Level,
	}
	for key, dst := range strs {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv(envPrefix + "SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sSERVER_PORT: %w", envPrefix, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(envPrefix + "AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sAUTH_ENABLED: %w", envPrefix, err)
		}
		cfg.Auth.Enabled = enabled
	}
	if v := os.Getenv(envPrefix + "RATELIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sRATELIMIT_RPS: %w", envPrefix, err)
		}
		cfg.RateLimit.RPS = rps
	}
	if v := os.Getenv(envPrefix + "RATELIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sRATELIMIT_BURST: %w", envPrefix, err)
		}
		cfg.RateLimit.Burst = burst
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
