package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// wordTokenizer maps each whitespace-separated word to one token.
type wordTokenizer struct {
	mu    sync.Mutex
	ids   map[string]int
	words []string
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{ids: make(map[string]int)}
}

func (w *wordTokenizer) Encode(text string) []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []int
	for _, f := range strings.Fields(text) {
		id, ok := w.ids[f]
		if !ok {
			id = len(w.words)
			w.ids[f] = id
			w.words = append(w.words, f)
		}
		out = append(out, id)
	}
	return out
}

func (w *wordTokenizer) Decode(tokens []int) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = w.words[t]
	}
	return strings.Join(parts, " ")
}

// letterEmbedder embeds text as a 26-dim letter histogram.
type letterEmbedder struct {
	err   error
	calls int
}

func (e *letterEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v := make([]float64, 26)
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		out[i] = v
	}
	return out, nil
}

var errEmbed = errors.New("embedding backend down")
