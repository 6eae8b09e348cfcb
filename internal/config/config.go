// Package config provides configuration loading, defaults, and validation
// for the bot. Values come from config.yaml and BOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines all application configuration parameters.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Cache     CacheConfig     `mapstructure:"cache"`
	History   HistoryConfig   `mapstructure:"history"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds Telegram transport settings.
type TelegramConfig struct {
	Token    string  `mapstructure:"token"     validate:"required"`
	AdminIDs []int64 `mapstructure:"admin_ids"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// EndpointConfig describes one outbound chat-completions endpoint.
type EndpointConfig struct {
	URL         string  `mapstructure:"url"   validate:"required,url"`
	Token       string  `mapstructure:"token"`
	Model       string  `mapstructure:"model" validate:"required"`
	Temperature float32 `mapstructure:"temperature" validate:"min=0,max=2"`
}

// LLMConfig holds settings for both model endpoints and the shared HTTP layer.
// Retrieval is the search-augmented endpoint; Assist serves the domain gate
// and the renderer. Tokens are deliberately not required at load time: a
// missing credential surfaces as a user-facing error per request instead of
// preventing startup.
type LLMConfig struct {
	Retrieval      EndpointConfig `mapstructure:"retrieval"`
	Assist         EndpointConfig `mapstructure:"assist"`
	ConnectTimeout time.Duration  `mapstructure:"connect_timeout" validate:"min=1s,max=1m"`
	RequestTimeout time.Duration  `mapstructure:"request_timeout" validate:"min=1s,max=10m"`
	MaxAttempts    int            `mapstructure:"max_attempts"    validate:"min=1,max=10"`
	RetryBaseDelay time.Duration  `mapstructure:"retry_base_delay" validate:"min=10ms"`
	RetryMaxDelay  time.Duration  `mapstructure:"retry_max_delay"  validate:"min=100ms"`
}

// LimitsConfig holds per-user daily quotas and boost settings.
type LimitsConfig struct {
	ChatDaily           int `mapstructure:"chat_daily"            validate:"min=1"`
	CountryDaily        int `mapstructure:"country_daily"         validate:"min=1"`
	BoostedChatDaily    int `mapstructure:"boosted_chat_daily"    validate:"min=1"`
	BoostedCountryDaily int `mapstructure:"boosted_country_daily" validate:"min=1"`
	BoostDays           int `mapstructure:"boost_days"            validate:"min=1"`
}

// CacheConfig holds country-info cache TTL and quality-gate thresholds.
// The quality thresholds are heuristic knobs, not exact contract constants.
type CacheConfig struct {
	TTL              time.Duration `mapstructure:"ttl"                validate:"min=1h"`
	MinAnswerLength  int           `mapstructure:"min_answer_length"  validate:"min=1"`
	MinListMarkers   int           `mapstructure:"min_list_markers"   validate:"min=1"`
	MinTopicKeywords int           `mapstructure:"min_topic_keywords" validate:"min=1"`
}

// HistoryConfig bounds stored and prompt-visible conversation history.
type HistoryConfig struct {
	MaxStoredMessages  int `mapstructure:"max_stored_messages"  validate:"min=10"`
	ContextMessages    int `mapstructure:"context_messages"     validate:"min=0,max=50"`
	MaxUserTextLength  int `mapstructure:"max_user_text_length" validate:"min=100"`
	MaxHistoryItemSize int `mapstructure:"max_history_item_size" validate:"min=100"`
}

// TaskConfig describes one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// Load reads configuration from the given YAML file and BOT_* environment
// variables, applies defaults, and validates the result. A missing config
// file is not an error; defaults plus environment are enough.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	v.SetDefault("database.path", "storage.db")

	// Secrets default to empty so their BOT_* environment variables bind
	// even without a config file entry.
	v.SetDefault("telegram.token", "")
	v.SetDefault("llm.retrieval.token", "")
	v.SetDefault("llm.assist.token", "")

	v.SetDefault("llm.retrieval.url", "https://api.perplexity.ai/chat/completions")
	v.SetDefault("llm.retrieval.model", "sonar")
	v.SetDefault("llm.retrieval.temperature", 0.3)
	v.SetDefault("llm.assist.url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("llm.assist.model", "gpt-4o-mini")
	v.SetDefault("llm.assist.temperature", 0.2)
	v.SetDefault("llm.connect_timeout", 10*time.Second)
	v.SetDefault("llm.request_timeout", 60*time.Second)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.retry_base_delay", 500*time.Millisecond)
	v.SetDefault("llm.retry_max_delay", 8*time.Second)

	v.SetDefault("limits.chat_daily", 20)
	v.SetDefault("limits.country_daily", 10)
	v.SetDefault("limits.boosted_chat_daily", 100)
	v.SetDefault("limits.boosted_country_daily", 50)
	v.SetDefault("limits.boost_days", 7)

	v.SetDefault("cache.ttl", 45*24*time.Hour)
	v.SetDefault("cache.min_answer_length", 600)
	v.SetDefault("cache.min_list_markers", 6)
	v.SetDefault("cache.min_topic_keywords", 4)

	v.SetDefault("history.max_stored_messages", 200)
	v.SetDefault("history.context_messages", 6)
	v.SetDefault("history.max_user_text_length", 2000)
	v.SetDefault("history.max_history_item_size", 600)

	v.SetDefault("scheduler.tasks", map[string]TaskConfig{
		"cache_sweep":     {Enabled: true, Schedule: "0 0 4 * * *"},
		"sql_maintenance": {Enabled: true, Schedule: "0 30 4 * * 0"},
	})
}
