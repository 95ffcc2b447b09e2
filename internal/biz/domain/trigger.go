package domain

// Placeholders the chat client substitutes for media it cannot deliver
const (
	NoticeVideoVoiceCall = "收到一条视频/语音聊天消息，请在手机上查看"
	NoticeRedEnvelope    = "收到红包，请在手机上查看"
	NoticeTransfer       = "收到转账，请在手机上查看"
	NoticeLocationLink   = "/cgi-bin/mmwebwx-bin/webwxgetpubliclinkimg"
)

// UnsupportedNotices lists every placeholder that marks a message as unhandleable
var UnsupportedNotices = []string{
	NoticeVideoVoiceCall,
	NoticeRedEnvelope,
	NoticeTransfer,
	NoticeLocationLink,
}

// DefaultSystemAccounts are sender names that never get a reply
var DefaultSystemAccounts = []string{"微信团队"}

// TriggerConfig is the trigger configuration (value object)
// It is read-only after startup.
type TriggerConfig struct {
	PrivateKeyword      string   // Private-chat trigger keyword, optional
	Rule                string   // Trigger regexp for both scopes, overrides PrivateKeyword
	BotName             string   // Used to build the group mention pattern
	DisableGroupMessage bool     // Disable chat replies in groups
	BlockWords          []string // Input block-words, suppress handling
	ReplyBlockWords     []string // Output block-words, suppress sending
	SystemAccounts      []string // Reserved sender names
}
