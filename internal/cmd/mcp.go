package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"blocknotes/internal/app"
)

func mcpCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "mcp",
		Short: "Serve blocks to AI agents over MCP on stdin/stdout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return app.ServeMCP(ctx, cfg, Version)
		},
	}
	return &cmd
}
