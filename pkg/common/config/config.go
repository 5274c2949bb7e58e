// Package config loads the chatmesh service configuration from a YAML
// file and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/chatmesh/chatmesh/pkg/cache"
)

// APIConfig defines the API server configuration
type APIConfig struct {
	ListenAddress string        `mapstructure:"listen_address"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
}

// ConversationConfig defines the context manager limits. Zero values fall
// back to the manager defaults.
type ConversationConfig struct {
	MaxTurns             int           `mapstructure:"max_turns"`
	MaxShortTermMemory   int           `mapstructure:"max_short_term_memory"`
	MaxLongTermMemory    int           `mapstructure:"max_long_term_memory"`
	SentimentHistorySize int           `mapstructure:"sentiment_history_size"`
	MaxPreviousIntents   int           `mapstructure:"max_previous_intents"`
	MaxEntityContext     int           `mapstructure:"max_entity_context"`
	PromotionThreshold   float64       `mapstructure:"promotion_threshold"`
	ContextTTL           time.Duration `mapstructure:"context_ttl"`
	MemoryItemTTL        time.Duration `mapstructure:"memory_item_ttl"`

	// SweepInterval drives the host-level expired-context sweep loop.
	// Zero disables the loop; expiry can still be swept on demand.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config holds the complete application configuration
type Config struct {
	API          APIConfig          `mapstructure:"api"`
	Cache        cache.RedisConfig  `mapstructure:"cache"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Environment  string             `mapstructure:"environment"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from config file
	configFile := os.Getenv("CHATMESH_CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/config.yaml"
	}
	v.SetConfigFile(configFile)

	// Read from environment variables prefixed with CHATMESH_
	v.SetEnvPrefix("CHATMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind environment variables that don't follow the CHATMESH_ prefix.
	// These are commonly used in Docker environments.
	_ = v.BindEnv("cache.address", "REDIS_ADDR")    // Best effort - viper handles errors internally
	_ = v.BindEnv("cache.address", "REDIS_ADDRESS") // Best effort - viper handles errors internally
	_ = v.BindEnv("cache.password", "REDIS_PASSWORD")
	v.AllowEmptyEnv(true)

	if err := v.ReadInConfig(); err != nil {
		// Config file is not required if environment variables are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if _, statErr := os.Stat(configFile); !os.IsNotExist(statErr) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("api.listen_address", ":8080")
	v.SetDefault("api.read_timeout", 30*time.Second)
	v.SetDefault("api.write_timeout", 30*time.Second)
	v.SetDefault("api.idle_timeout", 90*time.Second)

	v.SetDefault("cache.address", "")
	v.SetDefault("cache.database", 0)
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.dial_timeout", 5*time.Second)
	v.SetDefault("cache.read_timeout", 3*time.Second)
	v.SetDefault("cache.write_timeout", 3*time.Second)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.min_idle_conns", 2)
	v.SetDefault("cache.pool_timeout", 3*time.Second)

	v.SetDefault("conversation.max_turns", 50)
	v.SetDefault("conversation.max_short_term_memory", 20)
	v.SetDefault("conversation.max_long_term_memory", 100)
	v.SetDefault("conversation.sentiment_history_size", 10)
	v.SetDefault("conversation.max_previous_intents", 50)
	v.SetDefault("conversation.max_entity_context", 5)
	v.SetDefault("conversation.promotion_threshold", 0.7)
	v.SetDefault("conversation.context_ttl", time.Hour)
	v.SetDefault("conversation.memory_item_ttl", time.Hour)
	v.SetDefault("conversation.sweep_interval", 10*time.Minute)

	v.SetDefault("logging.level", "INFO")
}
