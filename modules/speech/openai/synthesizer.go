package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flemzord/ragchat/internal/speech"
)

const maxErrorBodySize = 4096

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// Synthesizer renders text through POST /audio/speech.
type Synthesizer struct {
	config Config
	client *http.Client
}

var _ speech.Synthesizer = (*Synthesizer)(nil)

// NewSynthesizer validates cfg and returns a Synthesizer.
func NewSynthesizer(cfg Config) (*Synthesizer, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Synthesizer{config: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Synthesize returns the complete clip or an error wrapping
// speech.ErrSynthesis. A non-200 status yields a *speech.StatusError.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return speech.Audio{}, fmt.Errorf("%w: empty input", speech.ErrSynthesis)
	}

	payload, err := json.Marshal(speechRequest{
		Model:          s.config.Model,
		Input:          text,
		Voice:          s.config.Voice,
		ResponseFormat: s.config.Format,
		Speed:          s.config.Speed,
	})
	if err != nil {
		return speech.Audio{}, fmt.Errorf("%w: marshal request: %w", speech.ErrSynthesis, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return speech.Audio{}, fmt.Errorf("%w: create request: %w", speech.ErrSynthesis, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("%w: %w", speech.ErrSynthesis, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return speech.Audio{}, &speech.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("%w: read audio: %w", speech.ErrSynthesis, err)
	}
	return speech.Audio{Data: data, Format: s.config.Format}, nil
}
