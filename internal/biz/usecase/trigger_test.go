package usecase

import (
	"testing"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
)

func newTrigger(t *testing.T, cfg domain.TriggerConfig) *TriggerUsecase {
	t.Helper()
	uc, err := NewTriggerUsecase(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return uc
}

func privateText(text string) *domain.InboundEvent {
	return &domain.InboundEvent{
		Sender: domain.Identity{ID: "ou_1", Name: "Alice"},
		Text:   text,
		Kind:   domain.KindText,
	}
}

func groupText(text string) *domain.InboundEvent {
	ev := privateText(text)
	ev.Room = &domain.Identity{ID: "oc_1", Name: "Team"}
	return ev
}

func TestShouldHandle_PrivateWithoutTrigger(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{})

	for _, text := range []string{"hi", "anything at all", "/cmd help", "你好"} {
		if !uc.ShouldHandle(privateText(text), true) {
			t.Errorf("Expected %q to be eligible without trigger config", text)
		}
	}
}

func TestShouldHandle_PrivateKeyword(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{PrivateKeyword: "gpt"})

	if !uc.ShouldHandle(privateText("hey gpt, how are you"), true) {
		t.Error("Expected keyword anywhere in the text to trigger")
	}
	if uc.ShouldHandle(privateText("hello"), true) {
		t.Error("Expected text without keyword to be ignored")
	}
}

func TestShouldHandle_PrivateKeywordIsLiteral(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{PrivateKeyword: "a+b"})

	if !uc.ShouldHandle(privateText("compute a+b please"), true) {
		t.Error("Expected literal keyword match")
	}
	if uc.ShouldHandle(privateText("aab"), true) {
		t.Error("Expected keyword not to be treated as a pattern")
	}
}

func TestShouldHandle_RuleOverridesKeyword(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{PrivateKeyword: "gpt", Rule: `^bot[:,]`})

	if uc.ShouldHandle(privateText("gpt hello"), true) {
		t.Error("Expected keyword to be ignored when a rule is configured")
	}
	if !uc.ShouldHandle(privateText("bot: hello"), true) {
		t.Error("Expected rule match to trigger")
	}
}

func TestShouldHandle_PrivateAudioIgnoresKeyword(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{PrivateKeyword: "gpt"})
	ev := privateText("[Audio]")
	ev.Kind = domain.KindAudio

	if !uc.ShouldHandle(ev, true) {
		t.Error("Expected private audio to be eligible")
	}
}

func TestShouldHandle_GroupRequiresMention(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{BotName: "Bot"})

	for _, text := range []string{"hello", "Bot do X", "hey @Bot do X", "@Botty do X", "@Bot"} {
		if uc.ShouldHandle(groupText(text), false) {
			t.Errorf("Expected %q to be ignored without mention prefix", text)
		}
	}

	if !uc.ShouldHandle(groupText("@Bot  do X"), false) {
		t.Error("Expected mention prefix to trigger")
	}
}

func TestShouldHandle_GroupMentionSignal(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{BotName: "Bot"})
	ev := groupText("do X")
	ev.MentionsBot = true

	if !uc.ShouldHandle(ev, false) {
		t.Error("Expected transport mention signal to trigger")
	}
}

func TestShouldHandle_GroupRule(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{BotName: "Bot", Rule: `^ask`})

	if !uc.ShouldHandle(groupText("@Bot ask something"), false) {
		t.Error("Expected rule to match text after the mention prefix")
	}
	if uc.ShouldHandle(groupText("@Bot tell something"), false) {
		t.Error("Expected rule mismatch to be ignored")
	}
}

func TestShouldHandle_GroupBotNameMetacharacters(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{BotName: "A+B"})

	if !uc.ShouldHandle(groupText("@A+B hello"), false) {
		t.Error("Expected bot name to match literally")
	}
	if uc.ShouldHandle(groupText("@AAB hello"), false) {
		t.Error("Expected metacharacters to be escaped")
	}
}

func TestIsNonsense(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{BlockWords: []string{"spam"}})

	tests := []struct {
		name     string
		ev       *domain.InboundEvent
		fromSelf bool
		want     bool
	}{
		{"plain text", privateText("hello"), false, false},
		{"self", privateText("hello"), true, true},
		{"empty", privateText(""), false, true},
		{"whitespace", privateText("  \n\t"), false, true},
		{"image", &domain.InboundEvent{Text: "[Image]", Kind: domain.KindImage}, false, true},
		{"recalled", &domain.InboundEvent{Text: "recalled", Kind: domain.KindRecalled}, false, true},
		{"audio", &domain.InboundEvent{Text: "[Audio]", Kind: domain.KindAudio}, false, false},
		{"system account", &domain.InboundEvent{Sender: domain.Identity{Name: "微信团队"}, Text: "hi", Kind: domain.KindText}, false, true},
		{"video notice", privateText(domain.NoticeVideoVoiceCall), false, true},
		{"red envelope", privateText(domain.NoticeRedEnvelope), false, true},
		{"transfer", privateText(domain.NoticeTransfer), false, true},
		{"location", privateText("https://x" + domain.NoticeLocationLink + "?a=1"), false, true},
		{"block word", privateText("buy spam now"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uc.IsNonsense(tt.ev, tt.fromSelf); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestIsNonsense_EmptyBlockWordIgnored(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{BlockWords: []string{""}})

	if uc.IsNonsense(privateText("hello"), false) {
		t.Error("Expected empty block-word not to match everything")
	}
}

func TestClean_Private(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{})
	if got := uc.Clean("hi", true); got != "hi" {
		t.Errorf("Expected 'hi', got %q", got)
	}

	uc = newTrigger(t, domain.TriggerConfig{PrivateKeyword: "gpt"})
	if got := uc.Clean("gpt what is go", true); got != "what is go" {
		t.Errorf("Expected 'what is go', got %q", got)
	}
}

func TestClean_Group(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{BotName: "Bot"})
	if got := uc.Clean("@Bot  do X", false); got != "do X" {
		t.Errorf("Expected 'do X', got %q", got)
	}

	uc = newTrigger(t, domain.TriggerConfig{BotName: "Bot", Rule: `ask`})
	if got := uc.Clean("@Bot ask me anything", false); got != "me anything" {
		t.Errorf("Expected 'me anything', got %q", got)
	}
}

func TestClean_QuotedHistory(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{})
	text := "old stuff\n" + QuoteSeparator + "\nolder\n" + QuoteSeparator + "\nlatest question"

	if got := uc.Clean(text, true); got != "latest question" {
		t.Errorf("Expected 'latest question', got %q", got)
	}
}

func TestClean_Idempotent(t *testing.T) {
	tests := []struct {
		cfg     domain.TriggerConfig
		text    string
		private bool
	}{
		{domain.TriggerConfig{}, "hi", true},
		{domain.TriggerConfig{BotName: "Bot"}, "@Bot  do X", false},
		{domain.TriggerConfig{PrivateKeyword: "gpt"}, "gpt tell me", true},
		{domain.TriggerConfig{BotName: "A+B"}, "@A+B hello", false},
		{domain.TriggerConfig{BotName: "Bot", Rule: `^ask`}, "@Bot ask me", false},
		{domain.TriggerConfig{}, "a\n" + QuoteSeparator + "\nb", true},
	}

	for _, tt := range tests {
		uc := newTrigger(t, tt.cfg)
		once := uc.Clean(tt.text, tt.private)
		if twice := uc.Clean(once, tt.private); twice != once {
			t.Errorf("Expected Clean(%q) to be stable at %q, got %q", tt.text, once, twice)
		}
	}
}

func TestClean_RepeatedKeywordRemovedOncePerCall(t *testing.T) {
	uc := newTrigger(t, domain.TriggerConfig{PrivateKeyword: "gpt"})

	once := uc.Clean("gpt what is gpt", true)
	if once != "what is gpt" {
		t.Errorf("Expected only the first keyword removed, got %q", once)
	}
	// a later occurrence is removed by the next call
	if twice := uc.Clean(once, true); twice != "what is" {
		t.Errorf("Expected %q, got %q", "what is", twice)
	}
}

func TestNewTriggerUsecase_InvalidRule(t *testing.T) {
	if _, err := NewTriggerUsecase(domain.TriggerConfig{Rule: "("}); err == nil {
		t.Error("Expected error for invalid rule")
	}
}
