package engine

import "sync"

// Store owns all mutable conversation state: user records, pending wizard
// sessions, and the chat index. Map access is guarded by mu; read-modify-write
// sequences for one user are serialized by the per-user lock, which dispatch
// holds for a full cycle.
type Store struct {
	mu      sync.Mutex
	users   map[int64]*User
	pending map[int64]*Pending
	chats   map[int64]int64
	locks   map[int64]*sync.Mutex
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{
		users:   make(map[int64]*User),
		pending: make(map[int64]*Pending),
		chats:   make(map[int64]int64),
		locks:   make(map[int64]*sync.Mutex),
	}
}

// LockUser acquires the serialization lock of one user id and returns the
// release func. Callers must release on every exit path.
func (s *Store) LockUser(userID int64) func() {
	s.mu.Lock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// User returns the committed record of one user.
func (s *Store) User(userID int64) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	return u, ok
}

// Pending returns the wizard session of one user.
func (s *Store) Pending(userID int64) (*Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	return p, ok
}

// SetPending stores a wizard session and indexes its chat.
func (s *Store) SetPending(p *Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.UserID] = p
	if p.ChatID != 0 {
		s.chats[p.ChatID] = p.UserID
	}
}

// DeletePending drops a wizard session without committing it.
func (s *Store) DeletePending(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, userID)
}

// PromotePending atomically replaces a wizard session with a committed user
// record. It reports false when no session existed, which happens when a
// duplicate confirmation arrives after the first one committed.
func (s *Store) PromotePending(userID int64, u *User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[userID]; !ok {
		return false
	}
	delete(s.pending, userID)
	s.users[userID] = u
	if u.ChatID != 0 {
		s.chats[u.ChatID] = userID
	}
	return true
}

// DeleteUser removes a committed record and every chat index entry pointing
// at it. Used only by the record-not-found recovery path.
func (s *Store) DeleteUser(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	for chatID, uid := range s.chats {
		if uid == userID {
			delete(s.chats, chatID)
		}
	}
}

// BindChat records which user acts in a chat.
func (s *Store) BindChat(chatID, userID int64) {
	if chatID == 0 || userID == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = userID
}

// ResolveChat maps a chat to its acting user. The index is best-effort: on a
// miss it is repaired from pending sessions, and when exactly one user record
// exists process-wide that one is assumed. The single-user fallback exists
// for single-tenant development setups and must not be relied upon.
func (s *Store) ResolveChat(chatID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID, ok := s.chats[chatID]; ok {
		return userID, true
	}
	for _, p := range s.pending {
		if p.ChatID == chatID {
			s.chats[chatID] = p.UserID
			return p.UserID, true
		}
	}
	if len(s.users) == 1 {
		for userID := range s.users {
			s.chats[chatID] = userID
			return userID, true
		}
	}
	return 0, false
}
