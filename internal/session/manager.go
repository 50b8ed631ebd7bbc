package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"finvault/internal/log"
)

// Options configures the session cookie.
type Options struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// Manager ties a Store to the session cookie. It is the only way
// handlers create, read or drop a session.
type Manager struct {
	store  Store
	opts   Options
	logger *log.Logger
	now    func() time.Time
}

func NewManager(store Store, opts Options, logger *log.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "finvault_session"
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		store:  store,
		opts:   opts,
		logger: logger.WithComponent(log.ComponentSession),
		now:    time.Now,
	}
}

// Establish starts a new session for token and userID and sets the cookie.
// A session the request already carried is dropped first.
func (m *Manager) Establish(w http.ResponseWriter, r *http.Request, token, userID string) (Session, error) {
	if token == "" {
		return Session{}, errors.New("establish session: empty token")
	}
	if old, ok := m.cookieValue(r); ok {
		if err := m.store.Delete(r.Context(), old); err != nil {
			m.logger.WarnContext(r.Context(), "Failed to drop previous session", log.FieldError, err)
		}
	}

	s := Session{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    userID,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Save(r.Context(), s); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}

	http.SetCookie(w, m.cookie(s.ID, int(m.opts.MaxAge.Seconds())))
	m.logger.InfoContext(r.Context(), "Session established", log.FieldUserID, userID)
	return s, nil
}

// Clear drops the request's session and expires the cookie. Calling it
// without a session is not an error.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, m.cookie("", -1))

	id, ok := m.cookieValue(r)
	if !ok {
		return nil
	}
	if err := m.store.Delete(r.Context(), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.logger.InfoContext(r.Context(), "Session cleared")
	return nil
}

// Current returns the request's session. Only presence is checked: the
// token is neither validated nor expired here.
func (m *Manager) Current(r *http.Request) (Session, bool) {
	if s, ok := FromContext(r.Context()); ok {
		return s, true
	}
	id, ok := m.cookieValue(r)
	if !ok {
		return Session{}, false
	}
	s, err := m.store.Load(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.ErrorContext(r.Context(), "Failed to load session", log.FieldError, err)
		}
		return Session{}, false
	}
	return s, s.Token != ""
}

func (m *Manager) cookieValue(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.opts.CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
