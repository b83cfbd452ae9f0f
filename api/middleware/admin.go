package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/angelmondragon/kwetupizza-backend/api/responses"
	pkgerrors "github.com/angelmondragon/kwetupizza-backend/pkg/errors"
	"github.com/angelmondragon/kwetupizza-backend/pkg/logger"
)

// AdminToken guards the admin API with a static bearer token. An empty
// configured token disables the admin API entirely.
func AdminToken(token string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(token))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin api disabled"))
				return
			}
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			provided := raw
			if strings.HasPrefix(strings.ToLower(provided), "bearer ") {
				provided = strings.TrimSpace(provided[7:])
			}
			if subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
