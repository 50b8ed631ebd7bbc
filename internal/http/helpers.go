package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"finvault/internal/api"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// backendStatus maps a failed backend call to the status of the page that
// reports it.
func backendStatus(err error) int {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrNoToken):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// isUnauthorized reports whether the backend rejected the bearer token.
func isUnauthorized(err error) bool {
	var apiErr *api.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

const flashCookie = "finvault_flash"

// setFlash stores a one-shot message shown by the next page render.
func setFlash(w http.ResponseWriter, msg string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns and clears the pending flash message.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}

// safeReturnPath accepts only dashboard paths as redirect targets.
func safeReturnPath(p string) string {
	if strings.HasPrefix(p, "/dashboard/") && !strings.Contains(p, "//") && !strings.ContainsAny(p, "\\?#") {
		return p
	}
	return homePath
}
