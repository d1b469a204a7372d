package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"homegrid-data/internal/authz"
	"homegrid-data/internal/service"
)

// sessionGuard resolves the bearer token into a session. Every protected
// handler goes through it; there is no ambient session state.
type sessionGuard struct {
	auth   service.AuthService
	logger *zap.Logger
}

// require resolves the caller's session or answers 401 itself.
func (g *sessionGuard) require(w http.ResponseWriter, r *http.Request) (authz.Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("missing bearer token"))
		return authz.Session{}, false
	}
	sess, err := g.auth.SessionFor(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, Fail("invalid or expired session"))
		return authz.Session{}, false
	}
	return sess, true
}
