package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel       = openai.GPT3Dot5Turbo
	DefaultTemperature = 0.2
	DefaultImageSize   = openai.CreateImageSize256x256
)

// Config contains OpenAI client configuration
type Config struct {
	APIKey      string
	BaseURL     string  // API host, "" = api.openai.com
	Model       string  // Chat model
	Temperature float32 // Sampling temperature
	ImageSize   string  // Generated image size, e.g. "256x256"
}

// Message is a single chat message
type Message struct {
	Role    string
	Content string
}

// Client is a thin wrapper over the OpenAI-compatible API
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	imageSize   string
}

// NewClient creates a new OpenAI client
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = DefaultImageSize
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = apiURL(cfg.BaseURL)
	}

	return &Client{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		imageSize:   cfg.ImageSize,
	}
}

// apiURL turns an API host into the versioned endpoint base
func apiURL(host string) string {
	host = strings.TrimRight(host, "/")
	if strings.HasSuffix(host, "/v1") {
		return host
	}
	return host + "/v1"
}

// Model returns the configured chat model
func (c *Client) Model() string {
	return c.model
}

// Chat sends the messages and returns the first choice
func (c *Client) Chat(ctx context.Context, user string, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		User:        user,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// CreateImage generates one image and returns its URL
func (c *Client) CreateImage(ctx context.Context, user, prompt string) (string, error) {
	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		N:              1,
		Size:           c.imageSize,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		User:           user,
	})
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}

	if len(resp.Data) == 0 {
		return "", fmt.Errorf("no image data")
	}

	return resp.Data[0].URL, nil
}

// Transcribe converts the audio file at path to text
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}

	return resp.Text, nil
}
