package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/keystone-id/keystone/internal/platform/httpx"
)

const bearerScheme = "Bearer"

// Middleware authenticates requests from the Authorization header and puts
// the resolved principal into the request context.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// Authenticate rejects requests without a valid access token.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			WriteUnauthenticated(w, unauthenticated(ReasonMalformed))
			return
		}

		principal, err := m.Resolver.ResolveAccess(r.Context(), raw)
		if err != nil {
			var uerr *UnauthenticatedError
			if errors.As(err, &uerr) {
				WriteUnauthenticated(w, uerr)
				return
			}
			if m.Logger != nil {
				m.Logger.Error("resolve access token", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// WriteUnauthenticated maps a resolution failure to its HTTP response.
// Inactive accounts get 400, everything else 401 with a bearer challenge.
func WriteUnauthenticated(w http.ResponseWriter, err *UnauthenticatedError) {
	if err.Reason == ReasonInactive {
		httpx.Problem(w, http.StatusBadRequest, "Inactive Account", "account is not active")
		return
	}
	w.Header().Set("WWW-Authenticate", bearerScheme)
	httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", string(err.Reason))
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}
