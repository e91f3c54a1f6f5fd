package ctxengine

import "github.com/flemzord/ragchat/internal/memory"

// CostFunc returns the budget units consumed by one turn.
type CostFunc func(memory.Turn) int

// UnitCost charges exactly one unit per turn, so a budget is a turn count.
func UnitCost(memory.Turn) int { return 1 }

// EstimatorCost charges the estimated token count of a turn's content.
func EstimatorCost(est TokenEstimator) CostFunc {
	return func(t memory.Turn) int {
		return est.Estimate(t.Content)
	}
}

// Trim returns the longest suffix of turns whose total cost does not
// exceed budget. Turns are never split: the walk stops at the first turn
// (newest to oldest) that does not fit, so a turn that alone exceeds the
// budget is dropped with everything older. The result is a fresh slice;
// turns is not modified. A nil cost means UnitCost.
func Trim(turns []memory.Turn, budget int, cost CostFunc) []memory.Turn {
	if cost == nil {
		cost = UnitCost
	}
	if budget <= 0 || len(turns) == 0 {
		return []memory.Turn{}
	}

	start := len(turns)
	used := 0
	for i := len(turns) - 1; i >= 0; i-- {
		c := cost(turns[i])
		if c < 0 {
			c = 0
		}
		if used+c > budget {
			break
		}
		used += c
		start = i
	}

	out := make([]memory.Turn, len(turns)-start)
	copy(out, turns[start:])
	return out
}

// Trimmer bundles a budget and a cost function.
type Trimmer struct {
	Budget int
	Cost   CostFunc
}

// NewTrimmer returns a turn-count trimmer keeping the last window turns.
// A non-positive window selects DefaultWindow.
func NewTrimmer(window int) Trimmer {
	if window <= 0 {
		window = DefaultWindow
	}
	return Trimmer{Budget: window, Cost: UnitCost}
}

// Trim applies the trimmer's budget and cost to turns.
func (t Trimmer) Trim(turns []memory.Turn) []memory.Turn {
	return Trim(turns, t.Budget, t.Cost)
}
