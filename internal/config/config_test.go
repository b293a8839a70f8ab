package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dragchat", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, time.Second, cfg.ReplyDelay)
	assert.Equal(t, "Bot reply to: ", cfg.ReplyPrefix)
	assert.True(t, cfg.JournalEnabled)
	assert.Equal(t, "dragchat", cfg.JournalName)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("REPLY_DELAY", "250ms")
	t.Setenv("REPLY_PREFIX", "echo: ")
	t.Setenv("JOURNAL_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.ReplyDelay)
	assert.Equal(t, "echo: ", cfg.ReplyPrefix)
	assert.False(t, cfg.JournalEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadNormalizesDelay(t *testing.T) {
	t.Setenv("REPLY_DELAY", "-5s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.ReplyDelay)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("REPLY_DELAY", "soon")
	_, err := Load()
	assert.Error(t, err)
}
