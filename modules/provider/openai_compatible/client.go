package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flemzord/ragchat/internal/provider"
)

// Chat completions wire format.

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponse struct {
	Choices []oaiChoice `json:"choices"`
	Usage   oaiUsage    `json:"usage"`
}

type oaiChoice struct {
	Message      oaiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type oaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// oaiError is the error envelope most compatible servers return.
type oaiError struct {
	Error struct {
		Code    any    `json:"code"`
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

var finishReasons = map[string]provider.FinishReason{
	"stop":           provider.FinishReasonStop,
	"length":         provider.FinishReasonLength,
	"content_filter": provider.FinishReasonFiltering,
}

// mapFinishReason translates finish_reason. Server-specific values are kept
// as-is.
func mapFinishReason(reason string) provider.FinishReason {
	if fr, ok := finishReasons[reason]; ok {
		return fr
	}
	return provider.FinishReason(reason)
}

func (p *Provider) newRequest(req provider.CompletionRequest) oaiRequest {
	out := oaiRequest{
		Model:       p.config.Model,
		Messages:    make([]oaiMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = p.config.MaxTokens
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, oaiMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (r oaiResponse) completion() provider.CompletionResponse {
	cr := provider.CompletionResponse{
		Usage: provider.TokenUsage{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		},
	}
	if len(r.Choices) > 0 {
		cr.Content = r.Choices[0].Message.Content
		cr.FinishReason = mapFinishReason(r.Choices[0].FinishReason)
	}
	return cr
}

// errorBodyLimit bounds how much of a failed response is kept in the error.
const errorBodyLimit = 4 << 10

// roundTrip sends in (GET when nil) to path and decodes a 2xx body into out
// when out is non-nil. Transport failures become ErrProviderDown unless the
// caller's context ended.
func (p *Provider) roundTrip(ctx context.Context, path string, in, out any) error {
	method, body := http.MethodGet, io.Reader(nil)
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("openaicompat: encode %s: %w", path, err)
		}
		method, body = http.MethodPost, bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("openaicompat: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	for k, v := range p.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %w", provider.ErrProviderDown, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return classifyStatus(resp.StatusCode, raw)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", provider.ErrProviderDown, path, err)
	}
	return nil
}

// classifyStatus maps a non-2xx response onto the provider sentinels.
func classifyStatus(code int, body []byte) error {
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimit, body)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrAuthentication, code, body)
	case code == http.StatusBadRequest && exceedsContext(body):
		return fmt.Errorf("%w: %s", provider.ErrContextLength, body)
	case code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", provider.ErrBadRequest, body)
	case code >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrProviderDown, code, body)
	default:
		return fmt.Errorf("openaicompat: unexpected status %d: %s", code, body)
	}
}

// exceedsContext recognizes the context overflow reports of the common
// servers: OpenAI's error code first, then known message fragments.
func exceedsContext(body []byte) bool {
	var env oaiError
	if json.Unmarshal(body, &env) == nil {
		if code, _ := env.Error.Code.(string); code == "context_length_exceeded" {
			return true
		}
	}
	lower := strings.ToLower(string(body))
	for _, frag := range []string{"context_length_exceeded", "context length", "maximum context", "token limit"} {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
