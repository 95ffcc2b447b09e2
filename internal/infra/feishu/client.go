package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkcontact "github.com/larksuite/oapi-sdk-go/v3/service/contact/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"go.uber.org/zap"
)

// Chat types reported by Feishu
const (
	ChatTypeP2P   = "p2p"
	ChatTypeGroup = "group"
)

// Resource types accepted by the message resource API
const (
	ResourceImage = "image"
	ResourceFile  = "file"
)

// Message represents a received Feishu message
type Message struct {
	ChatID      string
	MsgID       string
	MsgType     string // text, post, audio, image, location, share_user, ...
	ChatType    string // p2p, group
	Content     string // Text content, mention placeholders resolved
	ResourceKey string // file_key of audio, image_key of image
	SenderID    string // open_id
	SenderType  string // user, app
	MentionsBot bool
	Recalled    bool
	CreateTime  int64 // Milliseconds Unix timestamp
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Config contains Feishu app credentials
type Config struct {
	AppID     string
	AppSecret string
}

// Client is the Feishu API client
type Client struct {
	cfg       Config
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	cancel    context.CancelFunc
	log       *zap.Logger

	botMu     sync.RWMutex
	botOpenID string
	botName   string

	userNames sync.Map // open_id -> name
	chatNames sync.Map // chat_id -> name
}

// NewClient creates a new Feishu client
func NewClient(cfg Config, log *zap.Logger) *Client {
	return &Client{
		cfg:     cfg,
		larkCli: lark.NewClient(cfg.AppID, cfg.AppSecret),
		log:     log.Named("feishu"),
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects to Feishu via WebSocket and blocks until ctx is done
func (c *Client) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	if err := c.FetchBotInfo(ctx); err != nil {
		c.log.Warn("failed to fetch bot info", zap.Error(err))
	}

	// Handlers must return quickly so the SDK can ACK, otherwise Feishu re-delivers
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		}).
		OnP2MessageRecalledV1(func(ctx context.Context, event *larkim.P2MessageRecalledV1) error {
			go c.handleRecall(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.cfg.AppID, c.cfg.AppSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.log.Info("starting websocket connection")
	return c.wsCli.Start(ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// FetchBotInfo fetches the bot's own open_id and app name
func (c *Client) FetchBotInfo(ctx context.Context) error {
	resp, err := c.larkCli.Get(ctx, "/open-apis/bot/v3/info", nil, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}

	var botResult struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Bot  struct {
			OpenID  string `json:"open_id"`
			AppName string `json:"app_name"`
		} `json:"bot"`
	}
	if err := json.Unmarshal(resp.RawBody, &botResult); err != nil {
		return fmt.Errorf("decode bot info: %w", err)
	}
	if botResult.Code != 0 {
		return fmt.Errorf("API error: %s", botResult.Msg)
	}

	c.botMu.Lock()
	c.botOpenID = botResult.Bot.OpenID
	c.botName = botResult.Bot.AppName
	c.botMu.Unlock()

	c.log.Info("bot identity",
		zap.String("open_id", botResult.Bot.OpenID), zap.String("name", botResult.Bot.AppName))
	return nil
}

// BotOpenID returns the bot's open_id, empty until fetched
func (c *Client) BotOpenID() string {
	c.botMu.RLock()
	defer c.botMu.RUnlock()
	return c.botOpenID
}

// BotName returns the bot's app name, empty until fetched
func (c *Client) BotName() string {
	c.botMu.RLock()
	defer c.botMu.RUnlock()
	return c.botName
}

func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	if event.Event == nil || event.Event.Message == nil {
		return
	}
	rawMsg := event.Event.Message

	msg := &Message{
		ChatID:   deref(rawMsg.ChatId),
		MsgID:    deref(rawMsg.MessageId),
		MsgType:  deref(rawMsg.MessageType),
		ChatType: deref(rawMsg.ChatType),
	}
	if ts, err := strconv.ParseInt(deref(rawMsg.CreateTime), 10, 64); err == nil {
		msg.CreateTime = ts
	}

	if sender := event.Event.Sender; sender != nil {
		msg.SenderType = deref(sender.SenderType)
		if sender.SenderId != nil {
			msg.SenderID = deref(sender.SenderId.OpenId)
		}
	}

	// Build a map from mention key (@_user_1) to real name
	mentionMap := make(map[string]string)
	botOpenID := c.BotOpenID()
	for _, mention := range rawMsg.Mentions {
		if mention.Id != nil && botOpenID != "" && deref(mention.Id.OpenId) == botOpenID {
			msg.MentionsBot = true
		}
		if mention.Key != nil && mention.Name != nil {
			mentionMap[*mention.Key] = *mention.Name
		}
	}

	content := deref(rawMsg.Content)
	switch msg.MsgType {
	case larkim.MsgTypeText:
		msg.Content = parseTextContent(content, mentionMap)
	case larkim.MsgTypePost:
		msg.Content = parsePostContent(content, mentionMap)
	case larkim.MsgTypeAudio:
		msg.ResourceKey = parseKey(content, "file_key")
		msg.Content = "[Audio]"
	case larkim.MsgTypeImage:
		msg.ResourceKey = parseKey(content, "image_key")
		msg.Content = "[Image]"
	default:
		msg.Content = "[" + msg.MsgType + "]"
	}

	c.log.Debug("received message",
		zap.String("type", msg.MsgType),
		zap.String("chat_type", msg.ChatType),
		zap.String("chat_id", msg.ChatID),
		zap.Bool("mentions_bot", msg.MentionsBot))

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

func (c *Client) handleRecall(event *larkim.P2MessageRecalledV1) {
	if event.Event == nil {
		return
	}
	msg := &Message{
		ChatID:   deref(event.Event.ChatId),
		MsgID:    deref(event.Event.MessageId),
		Recalled: true,
	}
	if ts, err := strconv.ParseInt(deref(event.Event.RecallTime), 10, 64); err == nil {
		msg.CreateTime = ts
	}

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// parseTextContent extracts text from a text message
// It also replaces mention placeholders (@_user_1) with real names
func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parsePostContent flattens a rich text message into plain text
func parsePostContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, line := range parsed.Content {
		var b strings.Builder
		for _, elem := range line {
			switch elem.Tag {
			case "text":
				b.WriteString(elem.Text)
			case "at":
				if name, ok := mentionMap[elem.UserID]; ok {
					b.WriteString("@" + name)
				} else if elem.UserID != "" {
					b.WriteString("@" + elem.UserID)
				}
			}
		}
		if b.Len() > 0 {
			lines = append(lines, b.String())
		}
	}
	return replaceMentions(strings.Join(lines, "\n"), mentionMap)
}

// parseKey reads a single string field from a JSON message body
func parseKey(content, field string) string {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	key, _ := parsed[field].(string)
	return key
}

// replaceMentions replaces mention placeholders (@_user_1, @_user_2, etc.) with @RealName
func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

// SendText sends a text message
// receiveIDType is larkim.ReceiveIdTypeChatId or larkim.ReceiveIdTypeOpenId.
func (c *Client) SendText(ctx context.Context, receiveIDType, receiveID, text string) error {
	contentJSON, _ := json.Marshal(map[string]string{"text": text})
	return c.create(ctx, receiveIDType, receiveID, larkim.MsgTypeText, string(contentJSON))
}

// SendImage sends an already uploaded image
func (c *Client) SendImage(ctx context.Context, receiveIDType, receiveID, imageKey string) error {
	contentJSON, _ := json.Marshal(map[string]string{"image_key": imageKey})
	return c.create(ctx, receiveIDType, receiveID, larkim.MsgTypeImage, string(contentJSON))
}

func (c *Client) create(ctx context.Context, receiveIDType, receiveID, msgType, content string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send %s message failed: %w", msgType, err)
	}
	if !resp.Success() {
		return fmt.Errorf("send %s message error: %s", msgType, resp.Msg)
	}
	return nil
}

// UploadImage uploads image data and returns its image_key
func (c *Client) UploadImage(ctx context.Context, image io.Reader) (string, error) {
	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType(larkim.ImageTypeMessage).
			Image(image).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Image.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("upload image failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("upload image error: %s", resp.Msg)
	}
	return deref(resp.Data.ImageKey), nil
}

// DownloadResource streams a message attachment into w
func (c *Client) DownloadResource(ctx context.Context, messageID, key, resourceType string, w io.Writer) (int64, error) {
	req := larkim.NewGetMessageResourceReqBuilder().
		MessageId(messageID).
		FileKey(key).
		Type(resourceType).
		Build()

	resp, err := c.larkCli.Im.MessageResource.Get(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("failed to get resource: %w", err)
	}
	if !resp.Success() {
		return 0, fmt.Errorf("get resource error: %s", resp.Msg)
	}

	n, err := io.Copy(w, resp.File)
	if err != nil {
		return n, fmt.Errorf("failed to write resource: %w", err)
	}
	return n, nil
}

// UserName resolves a user's display name, cached
func (c *Client) UserName(ctx context.Context, openID string) (string, error) {
	if name, ok := c.userNames.Load(openID); ok {
		return name.(string), nil
	}

	req := larkcontact.NewGetUserReqBuilder().
		UserId(openID).
		UserIdType("open_id").
		Build()

	resp, err := c.larkCli.Contact.User.Get(ctx, req)
	if err != nil {
		return "", fmt.Errorf("get user failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("get user error: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.User == nil {
		return "", fmt.Errorf("get user: empty response")
	}

	name := deref(resp.Data.User.Name)
	c.userNames.Store(openID, name)
	return name, nil
}

// ChatName resolves a group chat's name, cached
func (c *Client) ChatName(ctx context.Context, chatID string) (string, error) {
	if name, ok := c.chatNames.Load(chatID); ok {
		return name.(string), nil
	}

	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return "", fmt.Errorf("get chat info failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("get chat info error: %s", resp.Msg)
	}

	name := deref(resp.Data.Name)
	c.chatNames.Store(chatID, name)
	return name, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
