package session

import (
	"errors"
	"slices"

	"github.com/flemzord/ragchat/internal/memory"
)

// ErrRAGUnavailable is returned when enabling context-augmented mode for a
// session that has no indexed document.
var ErrRAGUnavailable = errors.New("no document indexed for this session")

// Mode names how the next turn will be assembled.
type Mode string

// Turn modes as seen by a front end.
const (
	ModeChat Mode = "chat"
	ModeRAG  Mode = "rag"
)

// Audio is a rendered summary.
type Audio struct {
	Data   []byte `json:"-"`
	Format string `json:"format"`
}

// State is the front-end state of one session. Its fields change only
// through the transition methods.
type State struct {
	SessionID  string        `json:"session_id"`
	Transcript []memory.Turn `json:"transcript"`

	// Collection is the vector collection of the indexed document.
	Collection string `json:"collection,omitempty"`

	// RAGAvailable is set once a document is indexed.
	RAGAvailable bool `json:"rag_available"`

	// RAGEnabled routes turns through context-augmented mode.
	RAGEnabled bool `json:"rag_enabled"`

	// SummaryReady reports that a summary can be requested.
	SummaryReady bool `json:"summary_ready"`

	Summary string `json:"summary,omitempty"`
	Audio   *Audio `json:"audio,omitempty"`
}

// NewState returns a fresh state for id.
func NewState(id string) *State {
	return &State{SessionID: id}
}

// Reset starts a new session: the transcript is cleared and every
// document-related flag is turned off. The collection name is returned
// so the caller can drop it.
func (s *State) Reset(id string) (dropped string) {
	dropped = s.Collection
	*s = State{SessionID: id}
	return dropped
}

// DocumentIndexed records a freshly indexed document. RAG becomes
// available but stays disabled until SetRAG(true). Any previous summary
// is discarded. The replaced collection name is returned.
func (s *State) DocumentIndexed(collection string) (replaced string) {
	replaced = s.Collection
	if replaced == collection {
		replaced = ""
	}
	s.Collection = collection
	s.RAGAvailable = true
	s.RAGEnabled = false
	s.SummaryReady = true
	s.Summary = ""
	s.Audio = nil
	return replaced
}

// DocumentRemoved clears the document and everything derived from it.
// The removed collection name is returned.
func (s *State) DocumentRemoved() (removed string) {
	removed = s.Collection
	s.Collection = ""
	s.RAGAvailable = false
	s.RAGEnabled = false
	s.SummaryReady = false
	s.Summary = ""
	s.Audio = nil
	return removed
}

// SetRAG toggles context-augmented mode.
func (s *State) SetRAG(enabled bool) error {
	if enabled && !s.RAGAvailable {
		return ErrRAGUnavailable
	}
	s.RAGEnabled = enabled
	return nil
}

// Mode returns the mode of the next turn.
func (s State) Mode() Mode {
	if s.RAGEnabled && s.RAGAvailable {
		return ModeRAG
	}
	return ModeChat
}

// RecordExchange appends a successful exchange to the transcript.
func (s *State) RecordExchange(user, assistant string) {
	s.Transcript = append(s.Transcript, memory.UserTurn(user), memory.AssistantTurn(assistant))
}

// RecordSummary stores the latest summary and its audio rendering.
func (s *State) RecordSummary(text string, audio *Audio) {
	s.Summary = text
	s.Audio = audio
}

// Snapshot returns a deep copy that callers may read without locking.
func (s *State) Snapshot() State {
	cp := *s
	cp.Transcript = slices.Clone(s.Transcript)
	if s.Audio != nil {
		a := *s.Audio
		a.Data = slices.Clone(s.Audio.Data)
		cp.Audio = &a
	}
	return cp
}
