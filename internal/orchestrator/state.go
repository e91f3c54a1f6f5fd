package orchestrator

import "fmt"

// State is a step of one turn's handling.
type State int

// Turn states, in pipeline order. Succeeded and Failed are terminal.
const (
	StateStart State = iota
	StateHistoryFetched
	StateTrimmed
	StateAssembled
	StateBackendInvoked
	StateSucceeded
	StateFailed
)

// String returns a human-readable label for the state.
func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateHistoryFetched:
		return "history_fetched"
	case StateTrimmed:
		return "trimmed"
	case StateAssembled:
		return "assembled"
	case StateBackendInvoked:
		return "backend_invoked"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// next validates a transition. Every non-terminal state may move to the
// following pipeline state or to Failed.
func next(from, to State) error {
	if from.Terminal() {
		return fmt.Errorf("orchestrator: no transition from terminal state %s", from)
	}
	if to == StateFailed || to == from+1 {
		return nil
	}
	return fmt.Errorf("orchestrator: illegal transition %s -> %s", from, to)
}
