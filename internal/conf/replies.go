package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/devricklin/feishu-assistant/internal/biz/usecase"
)

// RepliesFile mirrors configs/replies.yaml
type RepliesFile struct {
	SystemPrompt         string `yaml:"system_prompt"`
	HelpText             string `yaml:"help_text"`
	Apology              string `yaml:"apology"`
	ImageFailure         string `yaml:"image_failure"`
	TranscriptionFailure string `yaml:"transcription_failure"`
	Pong                 string `yaml:"pong"`
	GroupReplyTemplate   string `yaml:"group_reply_template"`
}

// LoadReplies loads reply texts from a YAML file
// With an empty path the usual locations are tried; no file means defaults.
func LoadReplies(configPath string) (usecase.ReplyConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/replies.yaml",
			"/etc/feishu-assistant/replies.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "replies.yaml"))
		}
	}

	var raw []byte
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			raw = b
			break
		}
		if configPath != "" {
			return usecase.ReplyConfig{}, fmt.Errorf("failed to read %s: %w", p, err)
		}
	}

	if raw == nil {
		return usecase.DefaultReplyConfig, nil
	}
	return ParseReplies(raw)
}

// ParseReplies parses reply texts, filling missing fields with defaults
func ParseReplies(raw []byte) (usecase.ReplyConfig, error) {
	var file RepliesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return usecase.ReplyConfig{}, fmt.Errorf("failed to parse replies.yaml: %w", err)
	}

	return usecase.ReplyConfig{
		SystemPrompt:         file.SystemPrompt,
		HelpText:             file.HelpText,
		Apology:              file.Apology,
		ImageFailure:         file.ImageFailure,
		TranscriptionFailure: file.TranscriptionFailure,
		Pong:                 file.Pong,
		GroupReplyTemplate:   file.GroupReplyTemplate,
	}.WithDefaults(), nil
}
