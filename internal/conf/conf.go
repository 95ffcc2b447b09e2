package conf

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/usecase"
	"github.com/devricklin/feishu-assistant/internal/data"
	"github.com/devricklin/feishu-assistant/internal/infra/openai"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// OpenAI-compatible inference configuration
	OpenAI OpenAIConfig

	// Trigger configuration
	Trigger TriggerConfig

	// History configuration
	History HistoryConfig

	// Dispatch configuration
	Dispatch DispatchConfig

	// Admin HTTP configuration
	Admin AdminConfig

	// Log configuration
	Log LogConfig

	// Replies configuration (loaded from YAML)
	Replies usecase.ReplyConfig
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
	BotName   string // Used to build the group mention pattern
}

// OpenAIConfig contains inference configuration
type OpenAIConfig struct {
	APIKey      string
	API         string // Base URL, "" = api.openai.com
	Model       string
	ImageSize   string
	Temperature float32
	Timeout     time.Duration
}

// TriggerConfig contains trigger configuration
type TriggerConfig struct {
	PrivateKeyword  string
	Rule            string
	BlockWords      []string
	ReplyBlockWords []string
}

// HistoryConfig contains history store configuration
type HistoryConfig struct {
	DBPath     string
	MaxCount   int // Turns kept per speaker
	MaxMinutes int // Turns older than this are swept, 0 = keep
}

// DispatchConfig contains dispatch configuration
type DispatchConfig struct {
	ChatEnabled         bool
	DisableGroupMessage bool
	ChunkSize           int
	SendInterval        time.Duration
	AttachmentDir       string
}

// AdminConfig contains admin HTTP configuration
type AdminConfig struct {
	Addr string // "" disables the admin server
}

// LogConfig contains logging configuration
type LogConfig struct {
	Dir   string
	Debug bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".feishu-assistant")

	replies, err := LoadReplies(os.Getenv("REPLIES_CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
			BotName:   os.Getenv("BOT_NAME"),
		},
		OpenAI: OpenAIConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			API:       os.Getenv("API"),
			Model:     envString("MODEL", openai.DefaultModel),
			ImageSize: envString("IMAGE_SIZE", openai.DefaultImageSize),
		},
		Trigger: TriggerConfig{
			PrivateKeyword:  os.Getenv("CHAT_PRIVATE_TRIGGER_KEYWORD"),
			Rule:            os.Getenv("CHAT_TRIGGER_RULE"),
			BlockWords:      SplitList(os.Getenv("BLOCK_WORDS")),
			ReplyBlockWords: SplitList(os.Getenv("CHATGPT_BLOCK_WORDS")),
		},
		History: HistoryConfig{
			DBPath: envString("HISTORY_DB_PATH", filepath.Join(baseDir, "history.db")),
		},
		Dispatch: DispatchConfig{
			DisableGroupMessage: os.Getenv("DISABLE_GROUP_MESSAGE") == "true",
			AttachmentDir:       envString("ATTACHMENT_DIR", filepath.Join(baseDir, "attachments")),
		},
		Admin: AdminConfig{
			Addr: os.Getenv("ADMIN_ADDR"),
		},
		Log: LogConfig{
			Dir:   envString("LOG_DIR", filepath.Join(baseDir, "logs")),
			Debug: os.Getenv("DEBUG") == "true",
		},
		Replies: replies,
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	temperature, err := envFloat("TEMPERATURE", openai.DefaultTemperature)
	collect(err)
	cfg.OpenAI.Temperature = float32(temperature)

	timeoutSec, err := envInt("INFERENCE_TIMEOUT", int(usecase.DefaultInferenceTimeout/time.Second))
	collect(err)
	cfg.OpenAI.Timeout = time.Duration(timeoutSec) * time.Second

	cfg.History.MaxCount, err = envInt("MAX_HISTORY_COUNT", data.DefaultMaxTurns)
	collect(err)
	cfg.History.MaxMinutes, err = envInt("MAX_HISTORY_MINUTES", 0)
	collect(err)

	cfg.Dispatch.ChatEnabled, err = envBool("CHAT_ENABLED", true)
	collect(err)
	cfg.Dispatch.ChunkSize, err = envInt("CHUNK_SIZE", usecase.DefaultChunkSize)
	collect(err)
	intervalMs, err := envInt("SEND_INTERVAL_MS", 0)
	collect(err)
	cfg.Dispatch.SendInterval = time.Duration(intervalMs) * time.Millisecond

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToTriggerConfig converts to domain trigger configuration
func (c *Config) ToTriggerConfig() domain.TriggerConfig {
	return domain.TriggerConfig{
		PrivateKeyword:      c.Trigger.PrivateKeyword,
		Rule:                c.Trigger.Rule,
		BotName:             c.Feishu.BotName,
		DisableGroupMessage: c.Dispatch.DisableGroupMessage,
		BlockWords:          c.Trigger.BlockWords,
		ReplyBlockWords:     c.Trigger.ReplyBlockWords,
	}
}

// ToSegmentConfig converts to segmenter configuration
func (c *Config) ToSegmentConfig() usecase.SegmentConfig {
	return usecase.SegmentConfig{
		ChunkSize:       c.Dispatch.ChunkSize,
		SendInterval:    c.Dispatch.SendInterval,
		ReplyBlockWords: c.Trigger.ReplyBlockWords,
	}
}

// ToOpenAIConfig converts to inference client configuration
func (c *Config) ToOpenAIConfig() openai.Config {
	return openai.Config{
		APIKey:      c.OpenAI.APIKey,
		BaseURL:     c.OpenAI.API,
		Model:       c.OpenAI.Model,
		Temperature: c.OpenAI.Temperature,
		ImageSize:   c.OpenAI.ImageSize,
	}
}

// ToHistoryConfig converts to history store configuration
func (c *Config) ToHistoryConfig() data.HistoryConfig {
	return data.HistoryConfig{
		Path:         c.History.DBPath,
		MaxTurns:     c.History.MaxCount,
		SystemPrompt: c.Replies.SystemPrompt,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	if c.OpenAI.APIKey == "" {
		return &ConfigError{Field: "OPENAI_API_KEY", Message: "required"}
	}
	if c.History.MaxCount <= 0 {
		return &ConfigError{Field: "MAX_HISTORY_COUNT", Message: "must be positive"}
	}
	if c.Dispatch.ChunkSize <= 0 {
		return &ConfigError{Field: "CHUNK_SIZE", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

// SplitList splits a comma separated list, dropping empty items
func SplitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def, &ConfigError{Field: key, Message: "not an integer: " + val}
	}
	return parsed, nil
}

func envFloat(key string, def float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}
	parsed, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return def, &ConfigError{Field: key, Message: "not a number: " + val}
	}
	return parsed, nil
}

func envBool(key string, def bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def, &ConfigError{Field: key, Message: "not a boolean: " + val}
	}
	return parsed, nil
}
