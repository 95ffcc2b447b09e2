package biz

import (
	"testing"

	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
)

func TestNewUsecases(t *testing.T) {
	ucs, err := NewUsecases(nil, nil, nil, Options{
		Trigger: domain.TriggerConfig{BotName: "bot"},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ucs.Trigger == nil || ucs.Segmenter == nil || ucs.Chat == nil || ucs.Command == nil {
		t.Errorf("Expected all usecases built, got %+v", ucs)
	}
}

func TestNewUsecases_InvalidRule(t *testing.T) {
	_, err := NewUsecases(nil, nil, nil, Options{
		Trigger: domain.TriggerConfig{Rule: "(unclosed"},
	}, zap.NewNop())
	if err == nil {
		t.Error("Expected error for invalid trigger rule")
	}
}
