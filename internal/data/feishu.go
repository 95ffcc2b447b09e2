package data

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/repo"
	"github.com/devricklin/feishu-assistant/internal/infra/feishu"
)

// FeishuClient is the subset of the Feishu client the transport uses
type FeishuClient interface {
	SendText(ctx context.Context, receiveIDType, receiveID, text string) error
	SendImage(ctx context.Context, receiveIDType, receiveID, imageKey string) error
	UploadImage(ctx context.Context, image io.Reader) (string, error)
	DownloadResource(ctx context.Context, messageID, key, resourceType string, w io.Writer) (int64, error)
	ChatName(ctx context.Context, chatID string) (string, error)
	BotOpenID() string
}

var _ FeishuClient = (*feishu.Client)(nil)

// feishuRepo implements the Transport repository
type feishuRepo struct {
	client     FeishuClient
	httpClient *http.Client
	log        *zap.Logger
}

// NewFeishuRepo creates a new Feishu transport repository
func NewFeishuRepo(client FeishuClient, log *zap.Logger) repo.TransportRepo {
	return &feishuRepo{
		client:     client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.Named("transport"),
	}
}

// receiver maps a talker to a Feishu receive_id_type and id
func receiver(dest domain.Talker) (string, string) {
	if dest.IsGroup() {
		return larkim.ReceiveIdTypeChatId, dest.ID
	}
	return larkim.ReceiveIdTypeOpenId, dest.ID
}

// Send sends a text message to a contact or room
func (r *feishuRepo) Send(ctx context.Context, dest domain.Talker, text string) error {
	idType, id := receiver(dest)
	if err := r.client.SendText(ctx, idType, id, text); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	r.log.Debug("message sent", zap.Stringer("dest", dest), zap.Int("len", len([]rune(text))))
	return nil
}

// SendImage downloads the image at url and sends it as an image message
func (r *feishuRepo) SendImage(ctx context.Context, dest domain.Talker, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build image request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download image: status %d", resp.StatusCode)
	}

	imageKey, err := r.client.UploadImage(ctx, resp.Body)
	if err != nil {
		return err
	}

	idType, id := receiver(dest)
	if err := r.client.SendImage(ctx, idType, id, imageKey); err != nil {
		return err
	}
	r.log.Info("image sent", zap.Stringer("dest", dest), zap.String("image_key", imageKey))
	return nil
}

// SaveAttachment persists the event's attachment under dir and returns the file path
func (r *feishuRepo) SaveAttachment(ctx context.Context, ev *domain.InboundEvent, dir string) (string, error) {
	if ev.ResourceKey == "" {
		return "", fmt.Errorf("event %s has no attachment", ev.ID)
	}

	resourceType, ext := attachmentType(ev.Kind)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create attachment dir: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString()+ext)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	n, err := r.client.DownloadResource(ctx, ev.ID, ev.ResourceKey, resourceType, file)
	if err != nil {
		os.Remove(path)
		return "", err
	}

	r.log.Info("attachment saved",
		zap.String("path", path), zap.String("size", humanize.Bytes(uint64(n))))
	return path, nil
}

// attachmentType maps a message kind to the resource type and file extension
// Feishu voice notes are Opus in an Ogg container; whisper picks the decoder by extension.
func attachmentType(kind domain.MessageKind) (string, string) {
	if kind == domain.KindImage {
		return feishu.ResourceImage, ".png"
	}
	return feishu.ResourceFile, ".ogg"
}

// IsSelf checks if the sender is the bot account
func (r *feishuRepo) IsSelf(sender domain.Identity) bool {
	botID := r.client.BotOpenID()
	return botID != "" && sender.ID == botID
}

// MentionsBot checks if the event mentions the bot
func (r *feishuRepo) MentionsBot(ev *domain.InboundEvent) bool {
	if ev.MentionsBot {
		return true
	}
	botID := r.client.BotOpenID()
	return botID != "" && ev.Recipient != nil && ev.Recipient.ID == botID
}

// RoomTopic resolves the topic (display name) of a room
func (r *feishuRepo) RoomTopic(ctx context.Context, room domain.Identity) (string, error) {
	if room.Name != "" {
		return room.Name, nil
	}
	name, err := r.client.ChatName(ctx, room.ID)
	if err != nil {
		return "", err
	}
	if name == "" {
		return room.ID, nil
	}
	return name, nil
}
