package config

import (
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	Store         string `mapstructure:"store" yaml:"store"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`

	RoomTTL         time.Duration `mapstructure:"room_ttl" yaml:"room_ttl"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	SendQueueSize   int           `mapstructure:"send_queue_size" yaml:"send_queue_size"`
	CreateRateLimit int           `mapstructure:"create_rate_limit" yaml:"create_rate_limit"` // rooms per minute per IP, 0 disables
	FrameRateLimit  int           `mapstructure:"frame_rate_limit" yaml:"frame_rate_limit"`   // frames per second per connection, 0 disables

	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		Store:             "redis",
		RedisAddr:         "localhost:6379",
		RoomTTL:           120 * time.Second,
		MaxMessageBytes:   64 << 10,
		SendQueueSize:     64,
		CreateRateLimit:   30,
		FrameRateLimit:    20,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.Store != "" {
		c.Store = other.Store
	}
	if other.RedisAddr != "" {
		c.RedisAddr = other.RedisAddr
	}
	if other.RedisPassword != "" {
		c.RedisPassword = other.RedisPassword
	}
	if other.RedisDB != 0 {
		c.RedisDB = other.RedisDB
	}
	if other.RoomTTL != 0 {
		c.RoomTTL = other.RoomTTL
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.SendQueueSize != 0 {
		c.SendQueueSize = other.SendQueueSize
	}
	if other.CreateRateLimit != 0 {
		c.CreateRateLimit = other.CreateRateLimit
	}
	if other.FrameRateLimit != 0 {
		c.FrameRateLimit = other.FrameRateLimit
	}
	if other.StaticDir != "" {
		c.StaticDir = other.StaticDir
	}
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Store {
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store %q (want redis or memory)", c.Store)
	}
	if c.RoomTTL <= 0 {
		return fmt.Errorf("room_ttl must be positive, got %s", c.RoomTTL)
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("max_message_bytes must be positive, got %d", c.MaxMessageBytes)
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("send_queue_size must be positive, got %d", c.SendQueueSize)
	}
	if c.CreateRateLimit < 0 || c.FrameRateLimit < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}
	return nil
}
