package main

import (
	"github.com/spf13/cobra"

	"github.com/devricklin/feishu-assistant/internal/data"
	"github.com/devricklin/feishu-assistant/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the conversation history as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			historyRepo, err := data.NewHistoryRepo(cfg.ToHistoryConfig())
			if err != nil {
				return err
			}
			defer historyRepo.Close()

			return mcp.NewServer(historyRepo, version).Run(cmd.Context())
		},
	}
}
