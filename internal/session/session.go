// Package session keeps the bearer token and user id of a signed-in
// browser. Sessions are stored server side and addressed by an opaque
// cookie.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store when no session has the given id.
var ErrNotFound = errors.New("session not found")

// Session is what the browser's sign-in established.
type Session struct {
	ID        string
	Token     string
	UserID    string
	CreatedAt time.Time
}

// Store persists sessions by id. Implementations must be safe for
// concurrent use.
type Store interface {
	Save(ctx context.Context, s Session) error
	Load(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// Counter is implemented by stores that can report their size.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session placed in ctx by NewContext.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
