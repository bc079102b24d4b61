// Package session ties the identity provider's session to the resources
// that live as long as it does: the persisted client token and the
// bookmark store of the signed-in user.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelbox/clerk"
	"github.com/s0up4200/reelbox/saved"
)

// Identity is the part of the identity provider the manager drives
type Identity interface {
	SetActive(ctx context.Context, sessionID string) (*clerk.Session, error)
	SessionToken(ctx context.Context, sessionID string) (string, error)
	SignOut(ctx context.Context) error
	ClientToken() string
}

// StoreFactory builds the bookmark store for userID. An empty userID asks
// for the store used while signed out.
type StoreFactory func(userID string) *saved.Store

// Manager owns the active session and its bookmark store. A store is
// created when a session starts and closed when it ends.
type Manager struct {
	identity Identity
	tokens   *TokenCache
	newStore StoreFactory
	logger   zerolog.Logger

	mu        sync.Mutex
	sessionID string
	userID    string
	store     *saved.Store
}

// NewManager creates a Manager with no active session
func NewManager(identity Identity, tokens *TokenCache, newStore StoreFactory, logger zerolog.Logger) *Manager {
	return &Manager{
		identity: identity,
		tokens:   tokens,
		newStore: newStore,
		logger:   logger,
	}
}

// Start activates sessionID, persists the client token and opens the
// bookmark store of the session's user
func (m *Manager) Start(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return clerk.ErrNoSession
	}

	if _, err := m.identity.SetActive(ctx, sessionID); err != nil {
		return err
	}

	token, err := m.identity.SessionToken(ctx, sessionID)
	if err != nil {
		return err
	}
	claims, err := clerk.ParseSessionClaims(token)
	if err != nil {
		return err
	}

	if err := m.tokens.Save(ctx, KeySessionID, sessionID); err != nil {
		return err
	}
	if clientToken := m.identity.ClientToken(); clientToken != "" {
		if err := m.tokens.Save(ctx, KeyClientToken, clientToken); err != nil {
			return err
		}
	}

	store := m.newStore(claims.UserID)
	store.Refresh(ctx)

	m.mu.Lock()
	previous := m.store
	m.sessionID = sessionID
	m.userID = claims.UserID
	m.store = store
	m.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	m.logger.Debug().
		Str("session_id", sessionID).
		Str("user_id", claims.UserID).
		Msg("Session started")
	return nil
}

// Resume restarts the session persisted by an earlier run. It reports
// whether a session is active afterwards; a stale persisted session is
// forgotten rather than returned as an error.
func (m *Manager) Resume(ctx context.Context) (bool, error) {
	sessionID, ok, err := m.tokens.Get(ctx, KeySessionID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := m.Start(ctx, sessionID); err != nil {
		var clerkErr *clerk.Error
		if errors.As(err, &clerkErr) || errors.Is(err, clerk.ErrInvalidToken) || errors.Is(err, clerk.ErrNoSession) {
			m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Persisted session is no longer valid")
			if clearErr := m.tokens.Clear(ctx); clearErr != nil {
				return false, clearErr
			}
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// End signs out and closes the session's bookmark store. Local state is
// cleared even when the identity provider cannot be reached.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	store := m.store
	m.store = nil
	m.sessionID = ""
	m.userID = ""
	m.mu.Unlock()

	if store != nil {
		store.Close()
	}

	signOutErr := m.identity.SignOut(ctx)
	if err := m.tokens.Clear(ctx); err != nil {
		return errors.Join(signOutErr, err)
	}
	if signOutErr != nil {
		return fmt.Errorf("failed to sign out: %w", signOutErr)
	}

	m.logger.Debug().Msg("Session ended")
	return nil
}

// Saved returns the bookmark store of the current session, or the
// signed-out store when no session is active
func (m *Manager) Saved(ctx context.Context) *saved.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = m.newStore("")
		m.store.Refresh(ctx)
	}
	return m.store
}

// SignedIn reports whether a session is active
func (m *Manager) SignedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID != ""
}

// UserID returns the signed-in user's id, or ""
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Close releases the bookmark store without signing out
func (m *Manager) Close() {
	m.mu.Lock()
	store := m.store
	m.store = nil
	m.mu.Unlock()

	if store != nil {
		store.Close()
	}
}
