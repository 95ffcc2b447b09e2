package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/usecase"
	"github.com/devricklin/feishu-assistant/internal/conf"
	"github.com/devricklin/feishu-assistant/internal/data"
	"github.com/devricklin/feishu-assistant/internal/infra/feishu"
)

func newSendCmd() *cobra.Command {
	var toUser bool

	cmd := &cobra.Command{
		Use:   "send <chat_id> <text...>",
		Short: "Send a message, split into chunks like a reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Feishu.AppID == "" || cfg.Feishu.AppSecret == "" {
				return &conf.ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
			}

			log := zap.NewNop()
			client := feishu.NewClient(feishu.Config{AppID: cfg.Feishu.AppID, AppSecret: cfg.Feishu.AppSecret}, log)
			segmenter := usecase.NewSegmenter(data.NewFeishuRepo(client, log), cfg.ToSegmentConfig(), log)

			dest := domain.Group(args[0], "")
			if toUser {
				dest = domain.Individual(args[0], "")
			}

			text := strings.Join(args[1:], " ")
			if err := segmenter.Say(cmd.Context(), dest, text); err != nil {
				return err
			}
			fmt.Println("Message sent successfully!")
			return nil
		},
	}
	cmd.Flags().BoolVar(&toUser, "user", false, "treat the id as a user open_id instead of a chat_id")
	return cmd
}
