package api

import (
	"context"
	"net/http"
	"strings"

	"CreditProcess/api/auth"
	"CreditProcess/api/constants"
	"CreditProcess/internal/session"
	"CreditProcess/internal/validation"
)

type contextKey string

const (
	// SessionKey carries the validated session on the request context.
	SessionKey contextKey = "session"
)

// GetSessionFromCtx returns the validated session attached by the
// middleware, or nil on unauthenticated paths.
func GetSessionFromCtx(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(SessionKey).(*session.Session); ok {
		return s
	}
	return nil
}

// SessionMiddleware gates every data endpoint behind the password
// login. The session id may arrive in the X-Session-ID header, a JSON
// session_id field, or a form field. Health checks stay open.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/health") {
			next.ServeHTTP(w, r)
			return
		}

		sessionID, err := validation.ExtractSessionID(r)
		if err != nil {
			RespondWithError(w, http.StatusUnauthorized, constants.ErrMissingSessionID)
			return
		}

		s, ok := auth.ValidateSession(sessionID)
		if !ok {
			RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
