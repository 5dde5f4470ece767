// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	API       APIConfig       `mapstructure:"api"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Log       LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// AdminConfig lists the Telegram users allowed to operate the queue.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// APIConfig holds the backend REST API configuration.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Token      string        `mapstructure:"token"`
	QueuesPath string        `mapstructure:"queues_path"`
	ActionPath string        `mapstructure:"action_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
	PageSize   int           `mapstructure:"page_size"`
}

// WebSocketConfig holds the push channel configuration.
type WebSocketConfig struct {
	URL               string        `mapstructure:"url"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the action audit trail.
type DatabaseConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Name           string        `mapstructure:"name"`
	PoolSize       int           `mapstructure:"pool_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig holds the view-state cache configuration.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	ViewTTL  time.Duration `mapstructure:"view_ttl"`
}

// OpsConfig holds the health/metrics HTTP listener configuration.
type OpsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, API_BASE_URL, WEBSOCKET_URL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Empty defaults register the keys so AutomaticEnv can fill them on Unmarshal.
	v.SetDefault("bot.token", "")
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.token", "")
	v.SetDefault("websocket.url", "")
	v.SetDefault("database.password", "")
	v.SetDefault("redis.password", "")

	v.SetDefault("api.queues_path", "/api/v1/transaction-queues/")
	v.SetDefault("api.action_path", "/api/v1/transaction-queues/action/")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.page_size", 10)

	v.SetDefault("websocket.handshake_timeout", "10s")
	v.SetDefault("websocket.reconnect_interval", "3s")
	v.SetDefault("websocket.reconnect_attempts", 0)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "queuebot")
	v.SetDefault("database.name", "queuebot")
	v.SetDefault("database.pool_size", 5)
	v.SetDefault("database.connect_timeout", "10s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.view_ttl", "168h")

	v.SetDefault("ops.enabled", true)
	v.SetDefault("ops.addr", ":9090")

	v.SetDefault("log.level", "info")
}

// MaxPageSize keeps a rendered page, three action buttons per row plus
// navigation, under Telegram's inline keyboard button limit.
const MaxPageSize = 25

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("api.page_size must be positive, got %d", c.API.PageSize)
	}
	if c.API.PageSize > MaxPageSize {
		return fmt.Errorf("api.page_size must be at most %d, got %d", MaxPageSize, c.API.PageSize)
	}
	return nil
}

// IsAdmin checks if a user ID is in the operator list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
