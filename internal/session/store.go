// Package session holds per-conversation login state: authenticated
// sessions, the two-step login dialogue and failed-attempt accounting.
//
// None of the types here lock. They are owned by the dispatcher, whose single
// worker goroutine is the only caller.
package session

import "github.com/soyeahso/salesbot/internal/domain"

// Store maps conversations to their authenticated user.
type Store struct {
	sessions map[domain.ConversationKey]domain.User
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[domain.ConversationKey]domain.User)}
}

// Get returns the user logged in on key.
func (s *Store) Get(key domain.ConversationKey) (domain.User, bool) {
	u, ok := s.sessions[key]
	return u, ok
}

// Set records user as logged in on key, replacing any previous session.
func (s *Store) Set(key domain.ConversationKey, user domain.User) {
	s.sessions[key] = user
}

// Delete ends the session on key. Deleting a missing session is a no-op.
func (s *Store) Delete(key domain.ConversationKey) {
	delete(s.sessions, key)
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	return len(s.sessions)
}
