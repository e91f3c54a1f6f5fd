package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/flemzord/ragchat/internal/provider"
)

// statusOverloaded is Anthropic's non-standard "overloaded" status.
const statusOverloaded = 529

// statusSentinels classifies API failures by HTTP status. 400 is handled
// separately because a context overflow is reported with it.
var statusSentinels = map[int]error{
	http.StatusTooManyRequests:     provider.ErrRateLimit,
	statusOverloaded:               provider.ErrProviderDown,
	http.StatusInternalServerError: provider.ErrProviderDown,
	http.StatusBadGateway:          provider.ErrProviderDown,
	http.StatusServiceUnavailable:  provider.ErrProviderDown,
	http.StatusUnauthorized:        provider.ErrAuthentication,
	http.StatusForbidden:           provider.ErrAuthentication,
}

// contextLengthMarkers are substrings of a 400 message that mean the prompt
// did not fit the model's window.
var contextLengthMarkers = []string{"context length", "too many tokens", "token limit"}

// mapError wraps an SDK error in the matching provider sentinel so the
// backend selector and the gateway can classify it. Cancellation and
// non-API errors pass through unchanged.
func mapError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *sdkanthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	if apiErr.StatusCode == http.StatusBadRequest {
		if overflowsContext(apiErr.RawJSON()) {
			return fmt.Errorf("%w: %s", provider.ErrContextLength, apiErr.Error())
		}
		return fmt.Errorf("%w: %s", provider.ErrBadRequest, apiErr.Error())
	}
	if sentinel, ok := statusSentinels[apiErr.StatusCode]; ok {
		return fmt.Errorf("%w: HTTP %d: %s", sentinel, apiErr.StatusCode, apiErr.Error())
	}
	return fmt.Errorf("anthropic error (HTTP %d): %w", apiErr.StatusCode, err)
}

// overflowsContext reports whether a 400 body describes a context window
// overflow. A structured body must carry invalid_request_error; anything
// unparsable is matched on its raw text.
func overflowsContext(raw string) bool {
	var body struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := raw
	if err := json.Unmarshal([]byte(raw), &body); err == nil {
		if body.Error.Type != "invalid_request_error" {
			return false
		}
		msg = body.Error.Message
	}
	for _, m := range contextLengthMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
