// Package session owns the authenticated identity and its persistence.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/errs"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
	"github.com/bobmcallan/vire-desk/internal/models"
)

// Persisted keys. Nothing else survives a restart.
const (
	KeyToken = "session.token"
	KeyRole  = "session.role"
)

// Store is the single writer of the session identity. Other components read
// the token through Token and register reset hooks with OnLogout.
type Store struct {
	auth   interfaces.AuthBackend
	kv     interfaces.KeyValueStorage
	logger *common.Logger

	mu      sync.RWMutex
	current models.Session
	hooks   []func()
}

// NewStore creates an unauthenticated store.
func NewStore(auth interfaces.AuthBackend, kv interfaces.KeyValueStorage, logger *common.Logger) *Store {
	return &Store{auth: auth, kv: kv, logger: logger}
}

// Current returns a copy of the session.
func (s *Store) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the session token, or "" when not authenticated.
func (s *Store) Token() string {
	return s.Current().Token
}

// Role returns the session role, or "" when not authenticated.
func (s *Store) Role() models.Role {
	return s.Current().Role
}

// Authenticated reports whether a complete session is held.
func (s *Store) Authenticated() bool {
	return s.Current().Authenticated()
}

// OnLogout registers fn to run after every logout.
func (s *Store) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Login authenticates against the backend and persists the session. The
// backend's reason is surfaced verbatim on failure.
func (s *Store) Login(ctx context.Context, username, password string) (models.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.Session{}, errs.Validation("login", "username and password are required")
	}

	log := common.FromContext(ctx, s.logger)
	sess, err := s.auth.Login(ctx, username, password)
	if err != nil {
		log.Warn().Str("username", username).Str("error", err.Error()).Msg("login failed")
		return models.Session{}, err
	}
	if !sess.Authenticated() {
		return models.Session{}, errs.Server("login", "backend returned an incomplete session")
	}

	if err := s.persist(ctx, sess); err != nil {
		return models.Session{}, err
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	log.Info().Str("username", username).Str("role", string(sess.Role)).Msg("logged in")
	return sess, nil
}

// Register creates an account. It does not authenticate.
func (s *Store) Register(ctx context.Context, username, password string, role models.Role) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errs.Validation("register", "username and password are required")
	}
	if !role.Valid() {
		return errs.Validation("register", "role must be investor or analyst")
	}

	if err := s.auth.Register(ctx, username, password, role); err != nil {
		return err
	}
	common.FromContext(ctx, s.logger).Info().Str("username", username).Str("role", string(role)).Msg("registered")
	return nil
}

// Logout clears the persisted and in-memory session, then runs every reset
// hook. The in-memory reset happens even when storage fails.
func (s *Store) Logout(ctx context.Context) error {
	err := s.clearPersisted(ctx)

	s.mu.Lock()
	s.current = models.Session{}
	hooks := append([]func(){}, s.hooks...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}

	common.FromContext(ctx, s.logger).Info().Msg("logged out")
	return err
}

// Restore re-hydrates the session from storage. A missing or invalid field
// means "not authenticated" and any partial state is removed.
func (s *Store) Restore(ctx context.Context) (models.Session, error) {
	token, err := s.kv.Get(ctx, KeyToken)
	if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		return models.Session{}, fmt.Errorf("failed to read session token: %w", err)
	}
	roleStr, err := s.kv.Get(ctx, KeyRole)
	if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		return models.Session{}, fmt.Errorf("failed to read session role: %w", err)
	}

	role, _ := models.ParseRole(roleStr)
	sess := models.Session{Token: token, Role: role}
	if !sess.Authenticated() {
		if token != "" || roleStr != "" {
			s.logger.Warn().Msg("discarding incomplete persisted session")
			if err := s.clearPersisted(ctx); err != nil {
				return models.Session{}, err
			}
		}
		return models.Session{}, nil
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	s.logger.Debug().Str("role", string(role)).Msg("session restored")
	return sess, nil
}

func (s *Store) persist(ctx context.Context, sess models.Session) error {
	if err := s.kv.Set(ctx, KeyToken, sess.Token); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	if err := s.kv.Set(ctx, KeyRole, string(sess.Role)); err != nil {
		return fmt.Errorf("failed to persist session role: %w", err)
	}
	return nil
}

func (s *Store) clearPersisted(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyToken); err != nil {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	if err := s.kv.Delete(ctx, KeyRole); err != nil {
		return fmt.Errorf("failed to clear session role: %w", err)
	}
	return nil
}
