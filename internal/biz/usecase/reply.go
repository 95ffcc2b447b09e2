package usecase

import "strings"

// ReplyConfig contains the fixed texts the bot replies with
type ReplyConfig struct {
	SystemPrompt         string // Default system prompt of every conversation
	HelpText             string // Reply to /cmd help
	Apology              string // Reply when a completion fails
	ImageFailure         string // Reply when no image could be generated
	TranscriptionFailure string // Reply when speech-to-text fails
	Pong                 string // Reply to /ping
	GroupReplyTemplate   string // Group chat reply (supports {{asker}}, {{question}}, {{answer}})
}

// DefaultReplyConfig contains default reply texts
var DefaultReplyConfig = ReplyConfig{
	SystemPrompt: "You are a helpful assistant.",
	HelpText: "========\n" +
		"/cmd help\n" +
		"# 显示帮助信息\n" +
		"/cmd prompt <PROMPT>\n" +
		"# 设置当前会话的 prompt \n" +
		"/img <PROMPT>\n" +
		"# 根据 prompt 生成图片\n" +
		"/cmd clear\n" +
		"# 清除自上次启动以来的所有会话\n" +
		"========",
	Apology:              "抱歉，请稍后重试。😔",
	ImageFailure:         "生成图片失败",
	TranscriptionFailure: "语音转文本失败",
	Pong:                 "pong",
	GroupReplyTemplate:   "@{{asker}} {{question}}\n\n------\n {{answer}}",
}

// WithDefaults fills empty fields from DefaultReplyConfig
func (c ReplyConfig) WithDefaults() ReplyConfig {
	d := DefaultReplyConfig
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.SystemPrompt, d.SystemPrompt)
	fill(&c.HelpText, d.HelpText)
	fill(&c.Apology, d.Apology)
	fill(&c.ImageFailure, d.ImageFailure)
	fill(&c.TranscriptionFailure, d.TranscriptionFailure)
	fill(&c.Pong, d.Pong)
	fill(&c.GroupReplyTemplate, d.GroupReplyTemplate)
	return c
}

// FormatGroupReply formats a group chat answer with the asker attribution
func (c ReplyConfig) FormatGroupReply(asker, question, answer string) string {
	tmpl := c.GroupReplyTemplate
	if tmpl == "" {
		tmpl = DefaultReplyConfig.GroupReplyTemplate
	}
	r := strings.NewReplacer("{{asker}}", asker, "{{question}}", question, "{{answer}}", answer)
	return r.Replace(tmpl)
}
