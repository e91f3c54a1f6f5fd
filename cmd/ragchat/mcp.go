package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/flemzord/ragchat/internal/mcpserver"
	"github.com/flemzord/ragchat/pkg/app"
	"github.com/spf13/cobra"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the chat tools over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := runParams(cmd)
			if err != nil {
				return err
			}
			// stdout carries the protocol.
			params.LogOutput = os.Stderr

			env, err := app.Build(params, false)
			if err != nil {
				return err
			}
			if err := env.Start(); err != nil {
				return err
			}
			defer env.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := mcpserver.New(env.Runtime.Chat, version, env.Logger.With("component", "mcp"))
			return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
