// Package session holds per-session conversation state: the bound case and
// the ordered transcript. Nothing here survives the process; persistence is
// deliberately out of scope.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"pedsim-trainer/internal/casebank"
	"pedsim-trainer/internal/prompt"
)

var (
	// ErrNoActiveCase is returned when a turn arrives before any case was
	// bound via Reset.
	ErrNoActiveCase = errors.New("no active case bound to session")

	// ErrNotFound is returned by the store for unknown session IDs.
	ErrNotFound = errors.New("session not found")
)

// Speaker attributes a turn.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// Turn is one attributed message in the transcript, immutable once appended.
// Role records which behavioral mode the turn activated.
type Turn struct {
	Speaker Speaker     `json:"speaker"`
	Text    string      `json:"text"`
	Role    prompt.Role `json:"role"`
	At      time.Time   `json:"at"`
}

// Session owns one conversation: exactly zero or one bound case, plus the
// turns accumulated against it. All methods are safe for concurrent use so a
// session handle can be shared across handler goroutines.
type Session struct {
	ID uuid.UUID

	mu        sync.Mutex
	active    *casebank.CaseRecord
	turns     []Turn
	evaluated bool
}

// Reset clears the transcript and binds rec as the active case, atomically:
// no turn from the previous case can survive against the new one.
func (s *Session) Reset(rec casebank.CaseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = &rec
	s.turns = nil
	s.evaluated = false
}

// Append adds a turn in arrival order. Turns require a bound case.
func (s *Session) Append(t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveCase
	}
	if t.At.IsZero() {
		t.At = time.Now()
	}
	s.turns = append(s.turns, t)
	if t.Role == prompt.RoleEvaluator {
		s.evaluated = true
	}
	return nil
}

// Turns returns a copy of the transcript in append order.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// ActiveCase returns the bound case, or false when none is bound.
func (s *Session) ActiveCase() (casebank.CaseRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return casebank.CaseRecord{}, false
	}
	return *s.active, true
}

// Evaluated reports whether an evaluator-role turn has occurred since the
// last Reset. The debrief uses this to decide whether the hidden diagnosis
// may appear.
func (s *Session) Evaluated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluated
}

// Store is an in-memory registry of live sessions keyed by UUID.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[uuid.UUID]*Session)}
}

// Create registers a fresh session with no bound case.
func (st *Store) Create() *Session {
	s := &Session{ID: uuid.New()}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get looks up a session by ID.
func (st *Store) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}
