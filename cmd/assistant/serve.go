package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/api"
	"github.com/devricklin/feishu-assistant/internal/biz"
	"github.com/devricklin/feishu-assistant/internal/conf"
	"github.com/devricklin/feishu-assistant/internal/data"
	"github.com/devricklin/feishu-assistant/internal/diag"
	"github.com/devricklin/feishu-assistant/internal/infra/feishu"
	"github.com/devricklin/feishu-assistant/internal/infra/openai"
	"github.com/devricklin/feishu-assistant/internal/server"
	"github.com/devricklin/feishu-assistant/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Feishu and answer messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// loadConfig loads .env and the environment configuration
func loadConfig() (*conf.Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context) error {
	startedAt := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := diag.New(diag.Config{Dir: cfg.Log.Dir, Debug: cfg.Log.Debug})
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize clients
	feishuClient := feishu.NewClient(feishu.Config{AppID: cfg.Feishu.AppID, AppSecret: cfg.Feishu.AppSecret}, log)
	if err := feishuClient.FetchBotInfo(ctx); err != nil {
		log.Warn("bot identity unavailable, self detection disabled until reconnect", zap.Error(err))
	}
	if cfg.Feishu.BotName == "" {
		cfg.Feishu.BotName = feishuClient.BotName()
	}
	openaiClient := openai.NewClient(cfg.ToOpenAIConfig())

	// Initialize repository layer
	repos, err := data.NewRepositories(feishuClient, openaiClient, cfg.ToHistoryConfig(), log)
	if err != nil {
		return err
	}
	defer repos.Close()
	log.Info("history store opened",
		zap.String("path", cfg.History.DBPath), zap.Int("max_turns", cfg.History.MaxCount))

	// Initialize usecase layer
	ucs, err := biz.NewUsecases(repos.Transport, repos.Inference, repos.History, biz.Options{
		Trigger:          cfg.ToTriggerConfig(),
		Segment:          cfg.ToSegmentConfig(),
		InferenceTimeout: cfg.OpenAI.Timeout,
		Replies:          cfg.Replies,
	}, log)
	if err != nil {
		return err
	}

	// Initialize service layer
	dispatchSvc := service.NewDispatchService(ucs.Trigger, ucs.Command, ucs.Chat, ucs.Segmenter,
		repos.Transport, repos.Inference, cfg.Replies,
		service.DispatchConfig{
			ChatEnabled:         cfg.Dispatch.ChatEnabled,
			DisableGroupMessage: cfg.Dispatch.DisableGroupMessage,
			AttachmentDir:       cfg.Dispatch.AttachmentDir,
			StartedAt:           startedAt,
		}, log)

	janitor := service.NewHistoryJanitor(repos.History,
		time.Duration(cfg.History.MaxMinutes)*time.Minute, service.DefaultJanitorInterval, log)
	janitor.Start(ctx)
	defer janitor.Stop()

	if cfg.Admin.Addr != "" {
		apiServer := api.NewServer(repos.History, cfg.Admin.Addr, log)
		go func() {
			if err := apiServer.Start(); err != nil {
				log.Error("admin server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			apiServer.Stop(shutdownCtx)
		}()
		log.Info("admin server started", zap.String("addr", cfg.Admin.Addr))
	}

	srv := server.NewFeishuServer(feishuClient, dispatchSvc, log)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()
	log.Info("feishu assistant started", zap.String("version", version), zap.Int("pid", os.Getpid()))

	// The websocket client does not return on cancel, so wait on both
	select {
	case <-ctx.Done():
		log.Info("shutting down")
		srv.Stop()
		return nil
	case err := <-errCh:
		return err
	}
}
