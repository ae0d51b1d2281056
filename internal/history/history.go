package history

import "sync"

// Turn roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message exchange unit: a role tag and its text content.
// A Turn is a value and is never mutated after creation.
type Turn struct {
	Role    string
	Content string
}

// Store keeps per-user conversation history in memory for the lifetime of
// the process. Every history starts with the persona system turn, which is
// never evicted. Mutations are serialized per user so the store stays
// correct when handlers run concurrently.
type Store struct {
	persona string
	window  int

	mu    sync.Mutex
	users map[int64]*userHistory
}

type userHistory struct {
	mu    sync.Mutex
	turns []Turn
}

// NewStore creates an empty store. window is the number of non-system
// turns retained after trimming.
func NewStore(persona string, window int) *Store {
	if window <= 0 {
		window = 20
	}
	return &Store{
		persona: persona,
		window:  window,
		users:   map[int64]*userHistory{},
	}
}

func (s *Store) user(userID int64) *userHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.users[userID]
	if !ok {
		h = &userHistory{turns: []Turn{{Role: RoleSystem, Content: s.persona}}}
		s.users[userID] = h
	}
	return h
}

// GetOrCreate returns a copy of the user's history, seeding it with the
// persona turn on first use.
func (s *Store) GetOrCreate(userID int64) []Turn {
	h := s.user(userID)
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Turn(nil), h.turns...)
}

// Append adds a turn to the user's history, creating the history first if
// this is the user's first message.
func (s *Store) Append(userID int64, turn Turn) {
	h := s.user(userID)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
}

// Trim applies the retention window: when a history holds more than the
// persona turn plus window others, only the persona turn and the most
// recent window entries are kept. Trimming an already short history is a
// no-op, so repeated calls are idempotent.
func (s *Store) Trim(userID int64) {
	h := s.user(userID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.turns) <= s.window+1 {
		return
	}
	trimmed := make([]Turn, 0, s.window+1)
	trimmed = append(trimmed, h.turns[0])
	trimmed = append(trimmed, h.turns[len(h.turns)-s.window:]...)
	h.turns = trimmed
}

// Snapshot returns a copy of the user's history, or nil when the user has
// no history yet. Unlike GetOrCreate it never creates one.
func (s *Store) Snapshot(userID int64) []Turn {
	s.mu.Lock()
	h, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Turn(nil), h.turns...)
}

// Len returns the number of turns stored for the user, zero when the user
// has no history yet.
func (s *Store) Len(userID int64) int {
	s.mu.Lock()
	h, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
