// Package summary renders a spoken summary of an indexed document.
package summary

import (
	"context"
	"errors"
	"fmt"

	"github.com/flemzord/ragchat/internal/backend"
	"github.com/flemzord/ragchat/internal/orchestrator"
	"github.com/flemzord/ragchat/internal/speech"
)

// DefaultPrompt is the user turn sent to produce the summary.
const DefaultPrompt = "Briefly summarize the text"

// TurnHandler runs one conversation turn. *orchestrator.Orchestrator
// satisfies it.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error)
}

// Request asks for the summary of a session's document.
type Request struct {
	SessionID   string
	Collection  string
	Selection   backend.Selection
	Temperature int
}

// Summary is a generated summary and its audio.
type Summary struct {
	Text    string
	Audio   speech.Audio
	Backend string
	Model   string
}

// Summarizer runs the summary turn then synthesizes its text.
type Summarizer struct {
	turns  TurnHandler
	synth  speech.Synthesizer
	prompt string
	k      int
}

// New creates a Summarizer. An empty prompt selects DefaultPrompt; a
// non-positive k uses the orchestrator's default.
func New(turns TurnHandler, synth speech.Synthesizer, prompt string, k int) (*Summarizer, error) {
	if turns == nil {
		return nil, errors.New("summary: turn handler is required")
	}
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &Summarizer{turns: turns, synth: synth, prompt: prompt, k: k}, nil
}

// Summarize generates the summary through a context-augmented turn, which
// is recorded in the session history like any other turn. A synthesis
// failure wraps speech.ErrSynthesis and still returns the text; the turn
// is not rolled back.
func (s *Summarizer) Summarize(ctx context.Context, req Request) (Summary, error) {
	res, err := s.turns.HandleTurn(ctx, orchestrator.Request{
		SessionID:   req.SessionID,
		Text:        s.prompt,
		Selection:   req.Selection,
		Temperature: req.Temperature,
		RAG:         &orchestrator.RAGOptions{Collection: req.Collection, K: s.k},
	})
	if err != nil {
		return Summary{}, err
	}

	out := Summary{Text: res.Text, Backend: res.Backend, Model: res.Model}
	if s.synth == nil {
		return out, fmt.Errorf("%w: no synthesizer configured", speech.ErrSynthesis)
	}

	audio, err := s.synth.Synthesize(ctx, res.Text)
	if err != nil {
		if !errors.Is(err, speech.ErrSynthesis) {
			err = fmt.Errorf("%w: %w", speech.ErrSynthesis, err)
		}
		return out, err
	}
	out.Audio = audio
	return out, nil
}
