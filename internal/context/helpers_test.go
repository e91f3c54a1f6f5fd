package ctxengine_test

import (
	"fmt"

	"github.com/flemzord/ragchat/internal/memory"
)

// lenEstimator charges one token per byte.
type lenEstimator struct{}

func (lenEstimator) Estimate(text string) int { return len(text) }

// makeTestTurns creates n alternating user/assistant turns.
func makeTestTurns(n int) []memory.Turn {
	turns := make([]memory.Turn, n)
	for i := range turns {
		if i%2 == 0 {
			turns[i] = memory.UserTurn(fmt.Sprintf("msg-%d", i))
		} else {
			turns[i] = memory.AssistantTurn(fmt.Sprintf("msg-%d", i))
		}
	}
	return turns
}
