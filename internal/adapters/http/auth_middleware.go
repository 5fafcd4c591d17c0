package http

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
)

const basicRealm = `Basic realm="food"`

// BasicAuth checks the caller's credentials and stores the user name in the context.
func BasicAuth(user, password string, logger *slog.Logger) func(http.Handler) http.Handler {
	wantUser := sha256.Sum256([]byte(user))
	wantPass := sha256.Sum256([]byte(password))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok {
				unauthorized(w, r, "Authorization header required", logger)
				return
			}

			gotUser := sha256.Sum256([]byte(u))
			gotPass := sha256.Sum256([]byte(p))
			userOK := subtle.ConstantTimeCompare(gotUser[:], wantUser[:])
			passOK := subtle.ConstantTimeCompare(gotPass[:], wantPass[:])
			if userOK&passOK != 1 {
				logger.Warn("basic auth rejected", "user", u, "remote_addr", r.RemoteAddr)
				unauthorized(w, r, "Invalid credentials", logger)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string, logger *slog.Logger) {
	w.Header().Set("WWW-Authenticate", basicRealm)
	writeError(w, formatOf(r), http.StatusUnauthorized, ErrorResponse{Error: message}, logger)
}

// UserFromContext returns the authenticated caller, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(userContextKey).(string)
	return u, ok
}
