package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
)

// QuoteSeparator delimits quoted prior context inside a message
const QuoteSeparator = "- - - - - - - - - - - - - - -"

// TriggerUsecase decides whether a message gets handled and cleans its text
type TriggerUsecase struct {
	cfg         domain.TriggerConfig
	rule        *regexp.Regexp // Global trigger rule, both scopes
	privateRule *regexp.Regexp // Active private rule: rule, or escaped keyword
	mentionRule *regexp.Regexp // ^@<botName>\s
}

// NewTriggerUsecase compiles the trigger configuration
func NewTriggerUsecase(cfg domain.TriggerConfig) (*TriggerUsecase, error) {
	uc := &TriggerUsecase{cfg: cfg}

	if cfg.Rule != "" {
		rule, err := regexp.Compile(cfg.Rule)
		if err != nil {
			return nil, fmt.Errorf("compile trigger rule: %w", err)
		}
		uc.rule = rule
		uc.privateRule = rule
	} else if cfg.PrivateKeyword != "" {
		uc.privateRule = regexp.MustCompile(regexp.QuoteMeta(cfg.PrivateKeyword))
	}

	if cfg.BotName != "" {
		uc.mentionRule = regexp.MustCompile(`^@` + regexp.QuoteMeta(cfg.BotName) + `\s`)
	}

	if len(cfg.SystemAccounts) == 0 {
		uc.cfg.SystemAccounts = domain.DefaultSystemAccounts
	}

	return uc, nil
}

// Config returns the trigger configuration
func (uc *TriggerUsecase) Config() domain.TriggerConfig {
	return uc.cfg
}

// ShouldHandle checks the trigger rules for the event's scope
func (uc *TriggerUsecase) ShouldHandle(ev *domain.InboundEvent, private bool) bool {
	if private {
		// a voice note carries no text to match
		if ev.Kind == domain.KindAudio {
			return true
		}
		if uc.privateRule == nil {
			return true
		}
		return uc.privateRule.MatchString(ev.Text)
	}

	if ev.Kind == domain.KindAudio {
		return ev.MentionsBot
	}

	mentioned := ev.MentionsBot || uc.HasMention(ev.Text)
	if !mentioned {
		return false
	}
	if uc.rule != nil {
		return uc.rule.MatchString(uc.StripMention(ev.Text))
	}
	return true
}

// HasMention checks if text starts with the bot mention prefix
func (uc *TriggerUsecase) HasMention(text string) bool {
	return uc.mentionRule != nil && uc.mentionRule.MatchString(text)
}

// StripMention removes the leading bot mention prefix
func (uc *TriggerUsecase) StripMention(text string) string {
	if uc.mentionRule == nil {
		return text
	}
	return replaceFirst(uc.mentionRule, text)
}

// IsNonsense filters out messages that must not or cannot be handled
func (uc *TriggerUsecase) IsNonsense(ev *domain.InboundEvent, fromSelf bool) bool {
	if fromSelf {
		return true
	}
	if strings.TrimSpace(ev.Text) == "" {
		return true
	}
	if ev.Kind != domain.KindText && ev.Kind != domain.KindAudio {
		return true
	}
	for _, name := range uc.cfg.SystemAccounts {
		if ev.Sender.Name == name {
			return true
		}
	}
	for _, notice := range domain.UnsupportedNotices {
		if strings.Contains(ev.Text, notice) {
			return true
		}
	}
	return uc.IsBlocked(ev.Text)
}

// IsBlocked checks if text contains an input block-word
func (uc *TriggerUsecase) IsBlocked(text string) bool {
	return containsAny(text, uc.cfg.BlockWords)
}

// Clean strips quoted history, trigger keywords and the mention prefix
func (uc *TriggerUsecase) Clean(text string, private bool) string {
	if i := strings.LastIndex(text, QuoteSeparator); i >= 0 {
		text = text[i+len(QuoteSeparator):]
	}

	if private {
		if uc.privateRule != nil {
			text = replaceFirst(uc.privateRule, text)
		}
	} else {
		text = uc.StripMention(text)
		if uc.rule != nil {
			text = replaceFirst(uc.rule, text)
		}
	}

	return strings.TrimSpace(text)
}

// replaceFirst removes the first match of re
func replaceFirst(re *regexp.Regexp, s string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(text, w) {
			return true
		}
	}
	return false
}
