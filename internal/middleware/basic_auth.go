package middleware

import (
	"net/http"

	"github.com/maeum-coach/coaching-server-go/internal/audit"
	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/httputil"
	"github.com/maeum-coach/coaching-server-go/internal/util"
)

const basicAuthRealm = `Basic realm="coaching-stats"`

// BasicAuthMiddleware guards operator endpoints with a bcrypt-hashed
// password. Any username is accepted.
type BasicAuthMiddleware struct {
	passwordHash string
}

func NewBasicAuthMiddleware(passwordHash string) *BasicAuthMiddleware {
	return &BasicAuthMiddleware{passwordHash: passwordHash}
}

func (m *BasicAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.passwordHash == "" {
			httputil.WriteErrorWithStatus(w, http.StatusServiceUnavailable,
				apperrors.Internal("Stats endpoint is not configured"))
			return
		}

		_, password, ok := r.BasicAuth()
		if !ok || !util.PasswordMatches(password, m.passwordHash) {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventStatsAuthFailure,
				Details: map[string]interface{}{"path": r.URL.Path, "provided": ok},
			})
			w.Header().Set("WWW-Authenticate", basicAuthRealm)
			httputil.WriteError(w, apperrors.Unauthorized("Invalid credentials"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
