package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Point at a nonexistent file so only defaults apply
	t.Setenv("CHATMESH_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.API.ListenAddress)
	assert.Equal(t, 30*time.Second, cfg.API.ReadTimeout)
	assert.Equal(t, "", cfg.Cache.Address)
	assert.Equal(t, 3, cfg.Cache.MaxRetries)
	assert.Equal(t, 50, cfg.Conversation.MaxTurns)
	assert.Equal(t, 20, cfg.Conversation.MaxShortTermMemory)
	assert.Equal(t, 100, cfg.Conversation.MaxLongTermMemory)
	assert.Equal(t, 10, cfg.Conversation.SentimentHistorySize)
	assert.Equal(t, 50, cfg.Conversation.MaxPreviousIntents)
	assert.Equal(t, 5, cfg.Conversation.MaxEntityContext)
	assert.Equal(t, 0.7, cfg.Conversation.PromotionThreshold)
	assert.Equal(t, time.Hour, cfg.Conversation.ContextTTL)
	assert.Equal(t, time.Hour, cfg.Conversation.MemoryItemTTL)
	assert.Equal(t, 10*time.Minute, cfg.Conversation.SweepInterval)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
environment: production
api:
  listen_address: ":9090"
cache:
  address: "redis:6379"
  database: 2
conversation:
  max_turns: 10
  context_ttl: 30m
logging:
  level: DEBUG
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CHATMESH_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, ":9090", cfg.API.ListenAddress)
	assert.Equal(t, "redis:6379", cfg.Cache.Address)
	assert.Equal(t, 2, cfg.Cache.Database)
	assert.Equal(t, 10, cfg.Conversation.MaxTurns)
	assert.Equal(t, 30*time.Minute, cfg.Conversation.ContextTTL)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)

	// Unset keys keep their defaults
	assert.Equal(t, 20, cfg.Conversation.MaxShortTermMemory)
	assert.Equal(t, 30*time.Second, cfg.API.ReadTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHATMESH_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CHATMESH_CONVERSATION_MAX_TURNS", "5")
	t.Setenv("CHATMESH_API_LISTEN_ADDRESS", ":7070")
	t.Setenv("REDIS_ADDR", "envredis:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Conversation.MaxTurns)
	assert.Equal(t, ":7070", cfg.API.ListenAddress)
	assert.Equal(t, "envredis:6379", cfg.Cache.Address)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [not a map"), 0o600))
	t.Setenv("CHATMESH_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}
