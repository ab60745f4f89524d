package bot

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

type Action string

const (
	ActionBuy       Action = "buy"
	ActionRenew     Action = "renew"
	ActionBroadcast Action = "broadcast"
)

// MathProblem is the free-tier challenge: two operands, one operator,
// answer precomputed at generation so checking is a plain compare.
type MathProblem struct {
	Question string
	Answer   int
}

func GenerateMathProblem() MathProblem {
	a := rand.Intn(11) + 2
	b := rand.Intn(11) + 2
	var answer int
	var op string
	switch rand.Intn(3) {
	case 0:
		op, answer = "+", a+b
	case 1:
		op, answer = "-", a-b
	default:
		op, answer = "*", a*b
	}
	return MathProblem{
		Question: fmt.Sprintf("%d %s %d", a, op, b),
		Answer:   answer,
	}
}

func (p MathProblem) Check(answer int) bool {
	return answer == p.Answer
}

// ConversationState tracks one user's progress through a multi-step
// flow. At most one exists per user; starting a new flow replaces it.
type ConversationState struct {
	Action    Action
	Plan      string
	ServerID  string
	Math      *MathProblem
	MathDone  bool
	StartedAt time.Time
}

// StateStore holds conversation state in process memory. A TTL bounds
// how long an abandoned flow can swallow a user's free-text input;
// /cancel clears it immediately. The mutex is for the cron pruner,
// updates themselves are handled serially by the polling loop.
type StateStore struct {
	mu     sync.Mutex
	states map[int64]*ConversationState
	ttl    time.Duration
	now    func() time.Time
}

const stateTTL = 15 * time.Minute

func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[int64]*ConversationState),
		ttl:    stateTTL,
		now:    time.Now,
	}
}

// Set starts (or restarts) a flow for the user, replacing any previous state.
func (s *StateStore) Set(userID int64, state *ConversationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.StartedAt = s.now()
	s.states[userID] = state
}

// Get returns the user's state, treating an expired one as absent.
func (s *StateStore) Get(userID int64) *ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return nil
	}
	if s.now().Sub(state.StartedAt) > s.ttl {
		delete(s.states, userID)
		return nil
	}
	return state
}

func (s *StateStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
}

// Prune drops expired states. Run from cron so abandoned flows do not
// accumulate for users who never message again.
func (s *StateStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pruned int
	cutoff := s.now().Add(-s.ttl)
	for id, state := range s.states {
		if state.StartedAt.Before(cutoff) {
			delete(s.states, id)
			pruned++
		}
	}
	return pruned
}
