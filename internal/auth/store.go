// Package auth holds the session state: token, role, identity and the
// operator's acting mode. Persistence is a pluggable side effect so the
// store stays testable without touching disk.
package auth

import (
	"context"
	"sync"

	"github.com/sharecycle-console/internal/common/logger"
	"github.com/sharecycle-console/pkg/sharecycle/models"
)

// Session is the persisted shape of a signed-in user. CurrentMode is the
// role the user is acting as; for non-operators it always equals Role.
type Session struct {
	Token       string      `json:"token"`
	Role        models.Role `json:"role"`
	UserID      string      `json:"userId"`
	Username    string      `json:"username"`
	CurrentMode models.Role `json:"currentMode"`
}

// SignedIn reports whether the session carries a usable identity.
func (s Session) SignedIn() bool {
	return s.Token != "" && s.Role != "" && s.UserID != ""
}

// EffectiveRole is the role driving the UI: operators act as their
// CurrentMode, everyone else as their base role.
func (s Session) EffectiveRole() models.Role {
	if s.Role == models.RoleOperator && s.CurrentMode != "" {
		return s.CurrentMode
	}
	return s.Role
}

// Persistence stores the session across restarts. Corrupt state must
// load as signed-out, never as an error.
type Persistence interface {
	Load() (Session, bool)
	Save(Session) error
	Clear()
}

// AuthAPI is the slice of the platform gateway the store needs.
type AuthAPI interface {
	Logout(ctx context.Context, token string) error
	ToggleRole(ctx context.Context) (models.ToggleRoleResult, error)
}

// TripWiper clears all persisted active-trip state on logout.
type TripWiper interface {
	Clear(riderID string)
}

// Store is the session container. It implements api.TokenSource.
type Store struct {
	mu        sync.Mutex
	session   Session
	persist   Persistence
	api       AuthAPI
	trips     TripWiper
	logger    logger.Logger
	listeners []func(Session)
}

func NewStore(persist Persistence, api AuthAPI, trips TripWiper, log logger.Logger) *Store {
	s := &Store{persist: persist, api: api, trips: trips, logger: log}
	if persist != nil {
		if loaded, ok := persist.Load(); ok {
			if loaded.CurrentMode == "" {
				loaded.CurrentMode = loaded.Role
			}
			s.session = loaded
		}
	}
	return s
}

// SetAPI installs the platform gateway after construction. The API
// client needs the store as its token source, so the two wire up in
// two steps.
func (s *Store) SetAPI(api AuthAPI) {
	s.mu.Lock()
	s.api = api
	s.mu.Unlock()
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Token
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Subscribe registers a listener invoked on every session change.
func (s *Store) Subscribe(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Login installs the session from a successful auth response and
// persists it. A missing CurrentMode defaults to the base role.
func (s *Store) Login(result models.LoginResult) {
	next := Session{
		Token:       result.Token,
		Role:        result.Role,
		UserID:      result.UserID,
		Username:    result.Username,
		CurrentMode: result.CurrentMode,
	}
	if next.CurrentMode == "" {
		next.CurrentMode = next.Role
	}
	s.update(next)
	s.logger.Info("Signed in", "user", next.Username, "role", next.Role)
}

// Logout tells the platform best-effort, then clears the session, its
// persisted copy and any persisted active trip. Server errors are
// swallowed; signing out locally always succeeds.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	current := s.session
	authAPI := s.api
	s.mu.Unlock()

	if current.Token != "" && authAPI != nil {
		if err := authAPI.Logout(ctx, current.Token); err != nil {
			s.logger.Debug("Logout request failed", "error", err)
		}
	}

	s.update(Session{})
	if s.persist != nil {
		s.persist.Clear()
	}
	if s.trips != nil && current.UserID != "" {
		s.trips.Clear(current.UserID)
	}
	s.logger.Info("Signed out", "user", current.Username)
}

// ToggleRole flips an operator between acting modes. Non-operators and
// signed-out sessions are a no-op.
func (s *Store) ToggleRole(ctx context.Context) error {
	s.mu.Lock()
	current := s.session
	authAPI := s.api
	s.mu.Unlock()

	if current.Token == "" || current.Role != models.RoleOperator || authAPI == nil {
		return nil
	}

	result, err := authAPI.ToggleRole(ctx)
	if err != nil {
		s.logger.Error("Failed to toggle role", "error", err)
		return err
	}

	next := current
	next.CurrentMode = result.CurrentMode
	if result.Token != "" {
		next.Token = result.Token
	}
	s.update(next)
	s.logger.Info("Switched acting mode", "mode", next.CurrentMode)
	return nil
}

func (s *Store) update(next Session) {
	s.mu.Lock()
	s.session = next
	listeners := make([]func(Session), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if s.persist != nil && next.SignedIn() {
		if err := s.persist.Save(next); err != nil {
			s.logger.Warn("Failed to persist session", "error", err)
		}
	}
	for _, fn := range listeners {
		fn(next)
	}
}
