package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// MaxMessageBytes caps a single inbound websocket frame.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// RateLimit is the number of inbound messages allowed per connection per second.
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`
	// EventBuffer is the per-connection outbound queue size.
	EventBuffer int `mapstructure:"event_buffer" yaml:"event_buffer"`

	RoomCapacity  int    `mapstructure:"room_capacity" yaml:"room_capacity"`
	LobbyLimit    int    `mapstructure:"lobby_limit" yaml:"lobby_limit"`
	CodeLength    int    `mapstructure:"code_length" yaml:"code_length"`
	MinNameLength int    `mapstructure:"min_name_length" yaml:"min_name_length"`
	NameScope     string `mapstructure:"name_scope" yaml:"name_scope"`
	MaxChatLength int    `mapstructure:"max_chat_length" yaml:"max_chat_length"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		MaxMessageBytes:   64 * 1024,
		RateLimit:         20,
		EventBuffer:       32,
		RoomCapacity:      2,
		LobbyLimit:        5,
		CodeLength:        6,
		MinNameLength:     3,
		NameScope:         "room",
		MaxChatLength:     500,
	}
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.RoomCapacity < 2 {
		errs = append(errs, fmt.Errorf("room_capacity must be at least 2, got %d", c.RoomCapacity))
	}
	if c.CodeLength < 4 {
		errs = append(errs, fmt.Errorf("code_length must be at least 4, got %d", c.CodeLength))
	}
	if c.MinNameLength < 1 {
		errs = append(errs, fmt.Errorf("min_name_length must be positive, got %d", c.MinNameLength))
	}
	if c.LobbyLimit < 1 {
		errs = append(errs, fmt.Errorf("lobby_limit must be positive, got %d", c.LobbyLimit))
	}
	if c.MaxMessageBytes < 512 {
		errs = append(errs, fmt.Errorf("max_message_bytes must be at least 512, got %d", c.MaxMessageBytes))
	}
	if c.EventBuffer < 1 {
		errs = append(errs, fmt.Errorf("event_buffer must be positive, got %d", c.EventBuffer))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %d", c.RateLimit))
	}
	if c.MaxChatLength < 1 {
		errs = append(errs, fmt.Errorf("max_chat_length must be positive, got %d", c.MaxChatLength))
	}
	switch c.NameScope {
	case "room", "global":
	default:
		errs = append(errs, fmt.Errorf("name_scope must be room or global, got %q", c.NameScope))
	}
	return errors.Join(errs...)
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
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RateLimit != 0 {
		c.RateLimit = other.RateLimit
	}
	if other.EventBuffer != 0 {
		c.EventBuffer = other.EventBuffer
	}
	if other.RoomCapacity != 0 {
		c.RoomCapacity = other.RoomCapacity
	}
	if other.LobbyLimit != 0 {
		c.LobbyLimit = other.LobbyLimit
	}
	if other.CodeLength != 0 {
		c.CodeLength = other.CodeLength
	}
	if other.MinNameLength != 0 {
		c.MinNameLength = other.MinNameLength
	}
	if other.NameScope != "" {
		c.NameScope = other.NameScope
	}
	if other.MaxChatLength != 0 {
		c.MaxChatLength = other.MaxChatLength
	}
}
