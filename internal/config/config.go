package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const defaultReplyDelay = time.Second

// Config holds the environment driven configuration
type Config struct {
	ServiceName    string        `env:"SERVICE_NAME" envDefault:"dragchat"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReplyDelay     time.Duration `env:"REPLY_DELAY" envDefault:"1s"`
	ReplyPrefix    string        `env:"REPLY_PREFIX" envDefault:"Bot reply to: "`
	JournalEnabled bool          `env:"JOURNAL_ENABLED" envDefault:"true"`
	JournalName    string        `env:"JOURNAL_NAME" envDefault:"dragchat"`
}

// Load parses environment variables into Config
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.ReplyDelay <= 0 {
		c.ReplyDelay = defaultReplyDelay
	}
	c.JournalName = strings.TrimSpace(c.JournalName)
	if c.JournalName == "" {
		c.JournalName = "dragchat"
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		c.HTTPAddr = ":8080"
	}
}
