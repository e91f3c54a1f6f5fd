// Package tokenizer wraps tiktoken-go for chunking and token estimation.
package tokenizer

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding matches the embedding and chat models the chunker targets.
const DefaultEncoding = "cl100k_base"

// TikToken encodes and decodes text with a BPE encoding.
// The encoding tables are fetched on first use and cached under
// TIKTOKEN_CACHE_DIR when that variable is set.
type TikToken struct {
	encoding *tiktoken.Tiktoken
}

// NewTikToken creates a tokenizer for the given encoding name.
// An empty name selects DefaultEncoding.
func NewTikToken(encodingName string) (*TikToken, error) {
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: unknown encoding %q: %w", encodingName, err)
	}
	return &TikToken{encoding: enc}, nil
}

// Encode returns the token ids of text.
func (t *TikToken) Encode(text string) []int {
	if text == "" {
		return nil
	}
	return t.encoding.Encode(text, nil, nil)
}

// Decode returns the text for the given token ids.
func (t *TikToken) Decode(tokens []int) string {
	if len(tokens) == 0 {
		return ""
	}
	return t.encoding.Decode(tokens)
}

// Estimate returns the number of tokens in text.
func (t *TikToken) Estimate(text string) int {
	return len(t.Encode(text))
}
