package anthropic

import (
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/flemzord/ragchat/internal/provider"
)

// convertRequest transforms a CompletionRequest into Anthropic SDK parameters.
// System messages move into the dedicated System field.
func convertRequest(req provider.CompletionRequest, cfg *Config) sdkanthropic.MessageNewParams {
	system, messages := splitSystemMessages(req.Messages)

	params := sdkanthropic.MessageNewParams{
		Model:    sdkanthropic.Model(cfg.Model),
		Messages: convertMessages(messages),
		System:   system,
	}

	params.MaxTokens = int64(cfg.MaxTokens)
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}

	if req.Temperature != nil {
		params.Temperature = sdkanthropic.Float(*req.Temperature)
	}

	return params
}

// splitSystemMessages extracts every system message into Anthropic's System
// parameter and returns the remaining messages in order. The context
// assembler places its instruction first, so in practice only the leading
// message moves.
func splitSystemMessages(msgs []provider.LLMMessage) ([]sdkanthropic.TextBlockParam, []provider.LLMMessage) {
	var system []sdkanthropic.TextBlockParam
	rest := make([]provider.LLMMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == provider.MessageRoleSystem {
			system = append(system, sdkanthropic.TextBlockParam{Text: m.Content})
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// convertMessages transforms user and assistant messages into SDK params.
func convertMessages(msgs []provider.LLMMessage) []sdkanthropic.MessageParam {
	result := make([]sdkanthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleAssistant:
			result = append(result, sdkanthropic.NewAssistantMessage(sdkanthropic.NewTextBlock(msg.Content)))
		case provider.MessageRoleUser:
			result = append(result, sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock(msg.Content)))
		}
	}
	return result
}

// convertResponse transforms an SDK Message into a CompletionResponse.
// Multiple text blocks are joined with newlines.
func convertResponse(msg *sdkanthropic.Message) provider.CompletionResponse {
	var texts []string
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			texts = append(texts, v.Text)
		}
	}

	return provider.CompletionResponse{
		Content:      strings.Join(texts, "\n"),
		FinishReason: convertStopReason(msg.StopReason),
		Usage: provider.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

// convertStopReason maps an Anthropic stop reason to a FinishReason.
func convertStopReason(reason sdkanthropic.StopReason) provider.FinishReason {
	switch reason {
	case sdkanthropic.StopReasonEndTurn, sdkanthropic.StopReasonStopSequence:
		return provider.FinishReasonStop
	case sdkanthropic.StopReasonMaxTokens:
		return provider.FinishReasonLength
	case sdkanthropic.StopReasonRefusal:
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReason(reason)
	}
}
