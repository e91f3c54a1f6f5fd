// Package main is the entry point for the ragchat CLI.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/flemzord/ragchat/internal/config"
	"github.com/flemzord/ragchat/internal/core"
	"github.com/flemzord/ragchat/internal/provider"
	"github.com/flemzord/ragchat/pkg/app"
	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ragchat",
		Short:         "Conversational assistant with document-grounded answers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().String("data-dir", "", "Override the data directory")
	root.PersistentFlags().String("log-level", "", "Override the log level (debug, info, warn, error)")
	root.AddCommand(
		versionCmd(),
		serveCmd(),
		configCmd(),
		chatCmd(),
		ingestCmd(),
		mcpCmd(),
		serviceCmd(),
	)
	return root
}

// runParams reads the persistent flags shared by every command.
func runParams(cmd *cobra.Command) (app.RunParams, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	params := app.RunParams{
		ConfigPath: cfgPath,
		DataDir:    dataDir,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
	if raw, _ := cmd.Flags().GetString("log-level"); raw != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return app.RunParams{}, fmt.Errorf("--log-level: %w", err)
		}
		params.LogLevel = &level
	}
	return params, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ragchat %s (commit: %s, built: %s)\n", version, commit, date)
	mods := core.GetModules()
	if len(mods) == 0 {
		fmt.Fprintln(w, "\nNo compiled modules.")
		return
	}
	fmt.Fprintln(w, "\nCompiled modules:")
	var namespaces []string
	for _, mod := range mods {
		if ns := mod.ID.Namespace(); !slices.Contains(namespaces, ns) {
			namespaces = append(namespaces, ns)
		}
	}
	for _, ns := range namespaces {
		fmt.Fprintf(w, "  %s:\n", ns)
		for _, mod := range core.GetModulesByNamespace(ns) {
			fmt.Fprintf(w, "    %s\n", mod.ID)
		}
	}
	fmt.Fprintf(w, "\nBackend kinds: %s\n", strings.Join(provider.Kinds(), ", "))
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start ragchat with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := runParams(cmd)
			if err != nil {
				return err
			}
			return app.Run(params)
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and provision its modules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := runParams(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				params.ConfigPath = args[0]
			}
			params.LogOutput = io.Discard

			env, err := app.Build(params, true)
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			services, surfaces := config.Resolve(env.Config)
			fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(services)+len(surfaces))
			for _, id := range append(services, surfaces...) {
				fmt.Fprintf(out, "  %s\n", id)
			}
			for _, st := range env.Runtime.Backends.Status() {
				fmt.Fprintf(out, "  backend %s: %s\n", st.Name, st.Model)
			}
			if env.Runtime.Documents == nil {
				fmt.Fprintln(out, "  document ingestion: disabled (no embedder)")
			}
			return nil
		},
	})
	return cmd
}
