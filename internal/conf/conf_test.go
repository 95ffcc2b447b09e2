package conf

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/devricklin/feishu-assistant/internal/biz/usecase"
	"github.com/devricklin/feishu-assistant/internal/data"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("FEISHU_APP_ID", "cli_test")
	t.Setenv("FEISHU_APP_SECRET", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REPLIES_CONFIG_PATH", "")
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a,b", []string{"a", "b"}},
		{" a , ,b,", []string{"a", "b"}},
		{",", nil},
	}

	for _, tt := range tests {
		if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BLOCK_WORDS", "")
	t.Setenv("CHAT_ENABLED", "")
	t.Setenv("MAX_HISTORY_COUNT", "")
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("INFERENCE_TIMEOUT", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !cfg.Dispatch.ChatEnabled {
		t.Error("Expected chat enabled by default")
	}
	if cfg.Trigger.BlockWords != nil {
		t.Errorf("Expected no block words, got %v", cfg.Trigger.BlockWords)
	}
	if cfg.History.MaxCount != data.DefaultMaxTurns {
		t.Errorf("Expected MaxCount %d, got %d", data.DefaultMaxTurns, cfg.History.MaxCount)
	}
	if cfg.Dispatch.ChunkSize != usecase.DefaultChunkSize {
		t.Errorf("Expected ChunkSize %d, got %d", usecase.DefaultChunkSize, cfg.Dispatch.ChunkSize)
	}
	if cfg.OpenAI.Timeout != usecase.DefaultInferenceTimeout {
		t.Errorf("Expected default timeout, got %v", cfg.OpenAI.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Unexpected validation error: %v", err)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOT_NAME", "helper")
	t.Setenv("CHAT_PRIVATE_TRIGGER_KEYWORD", "gpt")
	t.Setenv("BLOCK_WORDS", "foo,bar")
	t.Setenv("CHATGPT_BLOCK_WORDS", "baz")
	t.Setenv("DISABLE_GROUP_MESSAGE", "true")
	t.Setenv("CHAT_ENABLED", "false")
	t.Setenv("TEMPERATURE", "0.7")
	t.Setenv("INFERENCE_TIMEOUT", "5")
	t.Setenv("SEND_INTERVAL_MS", "250")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tc := cfg.ToTriggerConfig()
	if tc.BotName != "helper" || tc.PrivateKeyword != "gpt" || !tc.DisableGroupMessage {
		t.Errorf("Unexpected trigger config: %+v", tc)
	}
	if !reflect.DeepEqual(tc.BlockWords, []string{"foo", "bar"}) {
		t.Errorf("Unexpected block words: %v", tc.BlockWords)
	}
	if cfg.Dispatch.ChatEnabled {
		t.Error("Expected chat disabled")
	}
	if cfg.OpenAI.Temperature < 0.69 || cfg.OpenAI.Temperature > 0.71 {
		t.Errorf("Expected temperature 0.7, got %v", cfg.OpenAI.Temperature)
	}
	if cfg.OpenAI.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.OpenAI.Timeout)
	}
	sc := cfg.ToSegmentConfig()
	if sc.SendInterval != 250*time.Millisecond || !reflect.DeepEqual(sc.ReplyBlockWords, []string{"baz"}) {
		t.Errorf("Unexpected segment config: %+v", sc)
	}
}

func TestLoadFromEnv_InvalidNumber(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_HISTORY_COUNT", "ten")

	_, err := LoadFromEnv()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigError, got %v", err)
	}
	if cfgErr.Field != "MAX_HISTORY_COUNT" {
		t.Errorf("Expected field MAX_HISTORY_COUNT, got %s", cfgErr.Field)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := &Config{History: HistoryConfig{MaxCount: 1}, Dispatch: DispatchConfig{ChunkSize: 1}}

	var cfgErr *ConfigError
	if err := cfg.Validate(); !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigError, got %v", err)
	}

	cfg.Feishu = FeishuConfig{AppID: "a", AppSecret: "b"}
	if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != "OPENAI_API_KEY" {
		t.Errorf("Expected OPENAI_API_KEY error, got %v", err)
	}

	cfg.OpenAI.APIKey = "sk"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
