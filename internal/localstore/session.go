package localstore

import "github.com/sharecycle-console/internal/auth"

const sessionKey = "sharecycle.auth"

// SessionStore persists the auth session under the fixed global key.
type SessionStore struct {
	store *Store
}

func NewSessionStore(store *Store) *SessionStore {
	return &SessionStore{store: store}
}

func (s *SessionStore) Load() (auth.Session, bool) {
	var session auth.Session
	if !s.store.Get(sessionKey, &session) {
		return auth.Session{}, false
	}
	if !session.SignedIn() {
		return auth.Session{}, false
	}
	return session, true
}

func (s *SessionStore) Save(session auth.Session) error {
	return s.store.Set(sessionKey, session)
}

func (s *SessionStore) Clear() {
	s.store.Delete(sessionKey)
}

var _ auth.Persistence = (*SessionStore)(nil)
