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
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Quest     QuestConfig     `mapstructure:"quest"`
	Effects   EffectsConfig   `mapstructure:"effects"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the leaderboard cache connection.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// HTTPConfig holds the read-only API listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	Enabled         bool          `mapstructure:"enabled"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// QuestConfig holds the tunables of the quest engine.
type QuestConfig struct {
	// UTCOffsetHours is the fixed civil offset used for daily, weekly and
	// monthly windows.
	UTCOffsetHours   int   `mapstructure:"utc_offset_hours"`
	DonationAmount   int64 `mapstructure:"donation_amount"`
	MaxPinned        int   `mapstructure:"max_pinned"`
	LikesThreshold   int   `mapstructure:"likes_threshold"`
	CommentThreshold int   `mapstructure:"comment_threshold"`
}

// Location returns the fixed zone described by UTCOffsetHours.
func (q QuestConfig) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", q.UTCOffsetHours), q.UTCOffsetHours*3600)
}

// EffectsConfig holds the outbound-effects worker configuration.
type EffectsConfig struct {
	Workers         int           `mapstructure:"workers"`
	QueueSize       int           `mapstructure:"queue_size"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout"`
	DrainTimeout    time.Duration `mapstructure:"drain_timeout"`
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

	// e.g. BOT_TOKEN, DATABASE_HOST, QUEST_UTC_OFFSET_HOURS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can provide everything.
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

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Quest.UTCOffsetHours < -12 || c.Quest.UTCOffsetHours > 14 {
		return fmt.Errorf("invalid quest.utc_offset_hours: %d", c.Quest.UTCOffsetHours)
	}
	if c.Quest.DonationAmount <= 0 {
		return fmt.Errorf("invalid quest.donation_amount: %d", c.Quest.DonationAmount)
	}
	if c.Quest.MaxPinned <= 0 {
		return fmt.Errorf("invalid quest.max_pinned: %d", c.Quest.MaxPinned)
	}
	if c.Effects.Workers <= 0 {
		return fmt.Errorf("invalid effects.workers: %d", c.Effects.Workers)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "focus")
	v.SetDefault("database.name", "focus")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "focus:leaderboard")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.allow_origins", []string{"*"})
	v.SetDefault("http.rate_limit", 60)
	v.SetDefault("http.rate_window", "1m")
	v.SetDefault("http.shutdown_timeout", "5s")

	v.SetDefault("quest.utc_offset_hours", -3)
	v.SetDefault("quest.donation_amount", 2)
	v.SetDefault("quest.max_pinned", 3)
	v.SetDefault("quest.likes_threshold", 20)
	v.SetDefault("quest.comment_threshold", 20)

	v.SetDefault("effects.workers", 4)
	v.SetDefault("effects.queue_size", 1024)
	v.SetDefault("effects.initial_interval", "200ms")
	v.SetDefault("effects.max_interval", "10s")
	v.SetDefault("effects.max_elapsed_time", "1m")
	v.SetDefault("effects.attempt_timeout", "5s")
	v.SetDefault("effects.drain_timeout", "10s")
}

// IsAdmin checks if a user ID is in the admin list.
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
