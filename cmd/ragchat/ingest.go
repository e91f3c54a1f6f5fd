package main

import (
	"fmt"
	"io"
	"os"

	"github.com/flemzord/ragchat/pkg/app"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file|->",
		Short: "Index a document and print its collection name",
		Long: "Index a document into a collection owned by no session. Pass the printed\n" +
			"collection to `chat --collection`, the MCP chat tool or the HTTP API.\n" +
			"Collections only outlive the process with a persistent vector store.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			params, err := runParams(cmd)
			if err != nil {
				return err
			}
			env, err := app.Build(params, false)
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.Runtime.Chat.IndexDocument(cmd.Context(), text)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d chunks\n", res.Collection, res.Chunks)
			return nil
		},
	}
}

// readDocument reads path, or stdin when path is "-".
func readDocument(stdin io.Reader, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return string(raw), nil
}
