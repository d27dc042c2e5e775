package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/ports"
)

type SessionOptions struct {
	Notifier ports.Notifier
	Messages ports.Translator
	Logger   *slog.Logger
}

// SessionStore owns the authenticated user and token. The token is mirrored
// to the key-value store so every gateway request can read it.
type SessionStore struct {
	api      ports.AuthAPI
	store    ports.KeyValueStore
	notifier ports.Notifier
	messages ports.Translator
	logger   *slog.Logger

	mu    sync.Mutex
	state domain.Session
}

func NewSessionStore(api ports.AuthAPI, store ports.KeyValueStore, opts SessionOptions) *SessionStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		api:      api,
		store:    store,
		notifier: notifierOr(opts.Notifier),
		messages: messagesOr(opts.Messages),
		logger:   logger,
	}
}

func (s *SessionStore) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	if s.state.User != nil {
		u := *s.state.User
		out.User = &u
	}
	return out
}

func (s *SessionStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsAuthenticated()
}

func (s *SessionStore) Login(ctx context.Context, req domain.LoginRequest) error {
	s.begin()
	resp, err := s.api.Login(ctx, req)
	if err == nil {
		err = validateAuthResponse(resp)
	}
	if err != nil {
		msg := s.failureMessage(err, false)
		s.fail(msg)
		s.notify(domain.NotificationError, s.messages.Translate("auth.login_failed"), msg)
		return err
	}

	if err := s.establish(ctx, resp.Token, *resp.User); err != nil {
		return err
	}
	s.logger.Info("session_login", "username", resp.User.Username)
	s.notify(domain.NotificationSuccess, s.messages.Translate("notify.success_title"), s.messages.Translate("auth.login_success"))
	return nil
}

func (s *SessionStore) Register(ctx context.Context, req domain.RegisterRequest) error {
	s.begin()
	resp, err := s.api.Register(ctx, req)
	if err == nil {
		err = validateAuthResponse(resp)
	}
	if err != nil {
		msg := s.failureMessage(err, true)
		s.fail(msg)
		s.notify(domain.NotificationError, s.messages.Translate("auth.register_failed"), msg)
		return err
	}

	if err := s.establish(ctx, resp.Token, *resp.User); err != nil {
		return err
	}
	s.logger.Info("session_register", "username", resp.User.Username)
	s.notify(domain.NotificationSuccess, s.messages.Translate("notify.success_title"), s.messages.Translate("auth.register_success"))
	return nil
}

// Logout clears the session and every persisted credential key.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.state = domain.Session{}
	s.mu.Unlock()

	if err := s.store.Delete(ctx, domain.TokenStorageKey, domain.LegacyTokenStorageKey, domain.UserStorageKey); err != nil {
		return fmt.Errorf("clear stored session: %w", err)
	}
	return nil
}

// ForceLogout is the reaction to a 401 from any request. The gateway has
// already removed the token.
func (s *SessionStore) ForceLogout(ctx context.Context) {
	s.mu.Lock()
	wasAuthenticated := s.state.IsAuthenticated()
	s.state = domain.Session{}
	s.mu.Unlock()

	if err := s.store.Delete(ctx, domain.UserStorageKey); err != nil {
		s.logger.Warn("session_cleanup_failed", "error", err)
	}
	if wasAuthenticated {
		s.logger.Info("session_forced_logout")
		s.notify(domain.NotificationWarning, s.messages.Translate("notify.warning_title"), s.messages.Translate("auth.session_expired"))
	}
}

// Refresh renews the token. Any failure ends the session.
func (s *SessionStore) Refresh(ctx context.Context) error {
	resp, err := s.api.Refresh(ctx)
	if err == nil && resp.Token == "" {
		err = domain.WrapError(domain.ErrServer, "session.refresh", errors.New("empty token"))
	}
	if err != nil {
		if logoutErr := s.Logout(ctx); logoutErr != nil {
			s.logger.Warn("session_cleanup_failed", "error", logoutErr)
		}
		return fmt.Errorf("refresh session: %w", err)
	}

	s.mu.Lock()
	user := s.state.User
	if resp.User != nil {
		u := *resp.User
		user = &u
	}
	s.mu.Unlock()
	if user == nil {
		current, err := s.api.CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("load current user: %w", err)
		}
		user = &current
	}
	return s.establish(ctx, resp.Token, *user)
}

// Restore loads a persisted session; it does not contact the backend.
func (s *SessionStore) Restore(ctx context.Context) (bool, error) {
	token, ok, err := s.store.Get(ctx, domain.TokenStorageKey)
	if err != nil {
		return false, fmt.Errorf("read stored token: %w", err)
	}
	if !ok || token == "" {
		return false, nil
	}
	raw, ok, err := s.store.Get(ctx, domain.UserStorageKey)
	if err != nil {
		return false, fmt.Errorf("read stored user: %w", err)
	}

	var user *domain.UserProfile
	if ok {
		var u domain.UserProfile
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.logger.Warn("stored_user_invalid", "error", err)
		} else {
			user = &u
		}
	}

	s.mu.Lock()
	s.state = domain.Session{Token: token, User: user}
	authenticated := s.state.IsAuthenticated()
	s.mu.Unlock()
	return authenticated, nil
}

// LoadCurrentUser fetches the profile for the stored token.
func (s *SessionStore) LoadCurrentUser(ctx context.Context) error {
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("load current user: %w", err)
	}
	return s.SetUser(ctx, &user)
}

func (s *SessionStore) SetUser(ctx context.Context, user *domain.UserProfile) error {
	s.mu.Lock()
	if user == nil {
		s.state.User = nil
	} else {
		u := *user
		s.state.User = &u
	}
	s.mu.Unlock()
	return s.persistUser(ctx, user)
}

// UpdateProfile merges patch into the current user and writes the result to
// the backend. The local profile changes only once the backend accepted it;
// without a user it does nothing.
func (s *SessionStore) UpdateProfile(ctx context.Context, patch domain.ProfileUpdate) error {
	s.mu.Lock()
	if s.state.User == nil {
		s.mu.Unlock()
		return nil
	}
	merged := s.state.User.Merge(patch)
	s.state.IsLoading = true
	s.state.Error = ""
	s.mu.Unlock()

	saved, err := s.api.UpdateProfile(ctx, merged)
	if err != nil {
		msg := domain.ErrorMessage(err, s.messages.Translate("profile.update_failed"))
		s.mu.Lock()
		s.state.IsLoading = false
		s.state.Error = msg
		s.mu.Unlock()
		s.notify(domain.NotificationError, s.messages.Translate("profile.update_failed"), msg)
		return fmt.Errorf("update profile: %w", err)
	}
	if saved.ID == 0 {
		saved = merged
	}

	s.mu.Lock()
	s.state.IsLoading = false
	s.state.User = &saved
	s.mu.Unlock()
	s.logger.Info("session_profile_updated", "user_id", saved.ID)
	s.notify(domain.NotificationSuccess, s.messages.Translate("notify.success_title"), s.messages.Translate("profile.update_success"))
	return s.persistUser(ctx, &saved)
}

func (s *SessionStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = ""
}

// TokenExpiry reads the exp claim without verifying the signature; the
// backend remains the authority on validity.
func (s *SessionStore) TokenExpiry() (time.Time, bool) {
	s.mu.Lock()
	token := s.state.Token
	s.mu.Unlock()
	if token == "" {
		return time.Time{}, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (s *SessionStore) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = true
	s.state.Error = ""
}

func (s *SessionStore) fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.Session{Error: msg}
}

func (s *SessionStore) establish(ctx context.Context, token string, user domain.UserProfile) error {
	if err := s.store.Set(ctx, domain.TokenStorageKey, token); err != nil {
		s.fail(domain.ErrorMessage(err, s.messages.Translate("error.generic")))
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.persistUser(ctx, &user); err != nil {
		s.logger.Warn("persist_user_failed", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.Session{User: &user, Token: token}
	return nil
}

func (s *SessionStore) persistUser(ctx context.Context, user *domain.UserProfile) error {
	if user == nil {
		return s.store.Delete(ctx, domain.UserStorageKey)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.store.Set(ctx, domain.UserStorageKey, string(data)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

func (s *SessionStore) failureMessage(err error, register bool) string {
	switch {
	case domain.IsKind(err, domain.ErrUnauthorized):
		return s.messages.Translate("auth.invalid_credentials")
	case domain.IsKind(err, domain.ErrInvalidInput):
		return domain.ErrorMessage(err, s.messages.Translate("auth.invalid_request"))
	case register && domain.IsKind(err, domain.ErrConflict):
		return s.messages.Translate("auth.duplicate_account")
	case domain.IsKind(err, domain.ErrServer):
		return s.messages.Translate("error.server")
	case domain.IsKind(err, domain.ErrNetwork):
		return s.messages.Translate("error.network")
	default:
		key := "auth.login_failed"
		if register {
			key = "auth.register_failed"
		}
		return domain.ErrorMessage(err, s.messages.Translate(key))
	}
}

func (s *SessionStore) notify(typ domain.NotificationType, title, message string) {
	s.notifier.Notify(domain.Notification{Type: typ, Title: title, Message: message})
}

func validateAuthResponse(resp domain.AuthResponse) error {
	if resp.Token == "" || resp.User == nil {
		return domain.WrapError(domain.ErrServer, "session.authenticate", errors.New("response lacks token or user"))
	}
	return nil
}
