package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/ragchat/internal/backend"
	"github.com/flemzord/ragchat/internal/chat"
	"github.com/flemzord/ragchat/internal/memory"
	"github.com/flemzord/ragchat/internal/orchestrator"
	"github.com/flemzord/ragchat/internal/retrieval"
	"github.com/flemzord/ragchat/internal/session"
	"github.com/flemzord/ragchat/internal/summary"
	"github.com/flemzord/ragchat/pkg/app"
	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  /new                 start a new session
  /rag on|off          toggle document-grounded answers
  /summary             summarize the session document
  /backend 0|1         switch between the primary and secondary backend
  /temperature N       set the temperature percentage (0-100)
  /history             print the stored conversation
  /quit                leave`

// chatRuntime is the part of *chat.Runtime the terminal chat drives.
type chatRuntime interface {
	NewSession(ctx context.Context, previous string) (string, error)
	Turn(ctx context.Context, req chat.TurnRequest) (orchestrator.Result, error)
	Ingest(ctx context.Context, sessionID, text string) (retrieval.IngestResult, error)
	SetRAG(sessionID string, enabled bool) error
	Summarize(ctx context.Context, sessionID string, sel backend.Selection, temperature *int) (summary.Summary, error)
	History(ctx context.Context, sessionID string) ([]memory.Turn, error)
	State(sessionID string) session.State
}

func chatCmd() *cobra.Command {
	var (
		sessionID   string
		selection   int
		temperature int
		document    string
		collection  string
		audioDir    string
		plain       bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the configured backends in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := runParams(cmd)
			if err != nil {
				return err
			}
			env, err := app.Build(params, false)
			if err != nil {
				return err
			}
			if err := env.Start(); err != nil {
				return err
			}
			defer env.Close()

			interactive := !plain && isTerminal(os.Stdin)
			sel, err := backend.ParseSelection(selection)
			if err != nil {
				return err
			}
			if interactive && !cmd.Flags().Changed("backend") {
				sel, err = pickBackend(env.Runtime.Chat.Backends())
				if err != nil {
					return err
				}
			}

			c := &chatSession{
				rt:         env.Runtime.Chat,
				out:        cmd.OutOrStdout(),
				sessionID:  sessionID,
				selection:  sel,
				collection: collection,
				audioDir:   audioDir,
			}
			if cmd.Flags().Changed("temperature") {
				c.temperature = &temperature
			}

			ctx := cmd.Context()
			if err := c.open(ctx, document); err != nil {
				return err
			}

			var read func() (string, error)
			if interactive {
				read = huhPrompt
			} else {
				read = lineReader(cmd.InOrStdin())
			}
			return c.loop(ctx, read)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Resume an existing session id")
	cmd.Flags().IntVar(&selection, "backend", 0, "Backend ordinal: 0 primary, 1 secondary")
	cmd.Flags().IntVar(&temperature, "temperature", 0, "Temperature percentage (0-100)")
	cmd.Flags().StringVar(&document, "document", "", "Index this file and enable document-grounded answers")
	cmd.Flags().StringVar(&collection, "collection", "", "Answer every turn from a collection created by the ingest command")
	cmd.Flags().StringVar(&audioDir, "audio-dir", "", "Write summary audio clips into this directory")
	cmd.Flags().BoolVar(&plain, "plain", false, "Read plain lines from stdin instead of prompting")
	return cmd
}

// chatSession holds the terminal chat state between lines.
type chatSession struct {
	rt          chatRuntime
	out         io.Writer
	sessionID   string
	selection   backend.Selection
	temperature *int
	collection  string
	audioDir    string
}

// open allocates a session when none is resumed and indexes the document.
func (c *chatSession) open(ctx context.Context, document string) error {
	if c.sessionID == "" {
		id, err := c.rt.NewSession(ctx, "")
		if err != nil {
			return err
		}
		c.sessionID = id
	}
	fmt.Fprintf(c.out, "session %s (backend %s). Type /help for commands.\n", c.sessionID, c.selection)

	if document == "" {
		return nil
	}
	raw, err := os.ReadFile(document)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	res, err := c.rt.Ingest(ctx, c.sessionID, string(raw))
	if err != nil {
		return err
	}
	if err := c.rt.SetRAG(c.sessionID, true); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "indexed %s into %d chunks, document mode on\n", filepath.Base(document), res.Chunks)
	return nil
}

func (c *chatSession) loop(ctx context.Context, read func() (string, error)) error {
	for {
		line, err := read()
		if errors.Is(err, io.EOF) || errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		quit, err := c.handle(ctx, line)
		if err != nil {
			fmt.Fprintln(c.out, "error:", err)
		}
		if quit {
			return nil
		}
	}
}

// handle runs one input line: a slash command or a chat turn. Errors are
// reported to the user and never end the loop.
func (c *chatSession) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		res, err := c.rt.Turn(ctx, chat.TurnRequest{
			SessionID:   c.sessionID,
			Text:        line,
			Selection:   c.selection,
			Temperature: c.temperature,
			Collection:  c.collection,
		})
		if err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "[%s/%s %s] %s\n", res.Backend, res.Model, res.Mode, res.Text)
		return false, nil
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(c.out, chatHelp)
	case "/new":
		id, err := c.rt.NewSession(ctx, c.sessionID)
		if err != nil {
			return false, err
		}
		c.sessionID = id
		fmt.Fprintf(c.out, "session %s\n", id)
	case "/rag":
		enabled := arg == "on"
		if arg != "on" && arg != "off" {
			return false, errors.New("usage: /rag on|off")
		}
		if err := c.rt.SetRAG(c.sessionID, enabled); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "mode: %s\n", c.rt.State(c.sessionID).Mode())
	case "/summary":
		return false, c.summarize(ctx)
	case "/backend":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, errors.New("usage: /backend 0|1")
		}
		sel, err := backend.ParseSelection(n)
		if err != nil {
			return false, err
		}
		c.selection = sel
		fmt.Fprintf(c.out, "backend: %s\n", sel)
	case "/temperature":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, errors.New("usage: /temperature N")
		}
		if _, err := orchestrator.NormalizeTemperature(n); err != nil {
			return false, err
		}
		c.temperature = &n
	case "/history":
		turns, err := c.rt.History(ctx, c.sessionID)
		if err != nil {
			return false, err
		}
		for _, t := range turns {
			fmt.Fprintf(c.out, "%s: %s\n", t.Role, t.Content)
		}
	default:
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}
	return false, nil
}

func (c *chatSession) summarize(ctx context.Context) error {
	sum, err := c.rt.Summarize(ctx, c.sessionID, c.selection, c.temperature)
	if sum.Text != "" {
		fmt.Fprintf(c.out, "summary: %s\n", sum.Text)
	}
	if err != nil {
		return err
	}
	if c.audioDir == "" || len(sum.Audio.Data) == 0 {
		return nil
	}
	path := filepath.Join(c.audioDir, fmt.Sprintf("summary-%s.%s", c.sessionID, sum.Audio.Format))
	if err := os.WriteFile(path, sum.Audio.Data, 0o600); err != nil {
		return fmt.Errorf("writing audio: %w", err)
	}
	fmt.Fprintf(c.out, "audio: %s\n", path)
	return nil
}

// pickBackend asks which backend to use.
func pickBackend(statuses []backend.Status) (backend.Selection, error) {
	sel := backend.Primary
	options := make([]huh.Option[backend.Selection], 0, len(statuses))
	for i, st := range statuses {
		options = append(options, huh.NewOption(st.Name+" ("+st.Model+")", backend.Selection(i)))
	}
	err := huh.NewSelect[backend.Selection]().
		Title("Backend").
		Options(options...).
		Value(&sel).
		Run()
	return sel, err
}

func huhPrompt() (string, error) {
	var line string
	err := huh.NewInput().
		Title("You").
		Placeholder("message or /help").
		Value(&line).
		Run()
	return line, err
}

func lineReader(r io.Reader) func() (string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return func() (string, error) {
		if sc.Scan() {
			return sc.Text(), nil
		}
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
