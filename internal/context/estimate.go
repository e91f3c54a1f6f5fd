package ctxengine

import (
	"math"
	"unicode/utf8"
)

// TokenEstimator estimates the token count of a string.
// *tokenizer.TikToken satisfies it with exact BPE counts.
type TokenEstimator interface {
	Estimate(text string) int
}

// defaultCharsPerToken approximates BPE tokenizers on Latin-script text.
const defaultCharsPerToken = 4.0

// CharEstimator approximates tokens from the rune count. It is the fallback
// when no BPE encoding can be loaded.
type CharEstimator struct {
	CharsPerToken float64
}

// NewCharEstimator returns a CharEstimator. A non-positive ratio selects 4.
func NewCharEstimator(charsPerToken float64) *CharEstimator {
	if charsPerToken <= 0 {
		charsPerToken = defaultCharsPerToken
	}
	return &CharEstimator{CharsPerToken: charsPerToken}
}

// Estimate rounds up so a non-empty text never costs zero.
func (e *CharEstimator) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return int(math.Ceil(float64(n) / e.CharsPerToken))
}
