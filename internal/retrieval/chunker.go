package retrieval

import (
	"errors"
	"fmt"
	"strings"
)

// Chunking defaults, in tokens.
const (
	DefaultChunkSize    = 300
	DefaultChunkOverlap = 50
)

// Tokenizer converts between text and token ids.
// *tokenizer.TikToken satisfies it.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Chunker splits text into overlapping token windows.
type Chunker struct {
	Tokenizer Tokenizer
	Size      int
	Overlap   int
}

// NewChunker returns a chunker with the default window and overlap.
func NewChunker(tok Tokenizer) *Chunker {
	return &Chunker{Tokenizer: tok, Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

// Validate checks the window settings.
func (c *Chunker) Validate() error {
	var errs []error
	if c.Tokenizer == nil {
		errs = append(errs, errors.New("chunker: tokenizer is required"))
	}
	if c.Size <= 0 {
		errs = append(errs, fmt.Errorf("chunker: size must be positive, got %d", c.Size))
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		errs = append(errs, fmt.Errorf("chunker: overlap must be in [0, size), got %d", c.Overlap))
	}
	return errors.Join(errs...)
}

// Split returns the text windows in document order. Blank input yields no
// chunks.
func (c *Chunker) Split(text string) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	tokens := c.Tokenizer.Encode(text)
	step := c.Size - c.Overlap

	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := min(start+c.Size, len(tokens))
		// A window edge may fall inside a multi-byte rune; the partial
		// bytes are dropped.
		chunk := strings.TrimSpace(strings.ToValidUTF8(c.Tokenizer.Decode(tokens[start:end]), ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}
