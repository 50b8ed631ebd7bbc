package http

import (
	"net/http"
	"sync"

	"finvault/internal/log"
	"finvault/internal/session"
)

// Guard decides whether a protected page may render. Only the presence of
// a session counts.
func Guard(hasSession bool) (redirect string, ok bool) {
	if hasSession {
		return "", true
	}
	return loginPath, false
}

// requireSession renders next for signed-in browsers and sends everyone
// else to the login page. The session is placed in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, found := s.sessions.Current(r)
		if redirect, ok := Guard(found); !ok {
			log.FromContext(r.Context()).WithComponent(log.ComponentAuth).DebugContext(r.Context(),
				"No session, redirecting to login", log.FieldPath, r.URL.Path)
			Redirect(redirect).Write(w)
			return
		}

		ctx := session.NewContext(r.Context(), sess)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, sess.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// inflightGuard admits one submission at a time per key.
type inflightGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{active: make(map[string]struct{})}
}

// begin claims key. The returned release must be called when the
// submission finishes; ok is false when key is already claimed.
func (g *inflightGuard) begin(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[key]; busy {
		return nil, false
	}
	g.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, key)
			g.mu.Unlock()
		})
	}, true
}

// size reports the number of submissions in flight.
func (g *inflightGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
