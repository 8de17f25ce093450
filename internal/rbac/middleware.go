package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/keystone-id/keystone/internal/identity"
	"github.com/keystone-id/keystone/internal/platform/httpx"
	"github.com/keystone-id/keystone/internal/shared"
)

// Middleware wires authorization guards for HTTP handlers. Guards are
// composed explicitly per route; they assume identity.Middleware already ran.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequirePermission ensures the current principal holds the permission.
func (m Middleware) RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := identity.PrincipalFromContext(r.Context())
			if principal == nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			if err := AllowPermission(principal, perm); err != nil {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission "+perm)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole ensures the current principal holds the named role. A role
// name unknown to the system responds 404.
func (m Middleware) RequireRole(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := identity.PrincipalFromContext(r.Context())
			if principal == nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}

			roleExists := true
			if !principal.Superuser {
				exists, err := m.Service.RoleExistsByName(r.Context(), name)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("rbac require role", slog.Any("error", err))
					}
					httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
					return
				}
				roleExists = exists
			}

			if err := AllowRole(principal, name, roleExists); err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					httpx.Problem(w, http.StatusNotFound, "Not Found", "role "+name+" does not exist")
					return
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing role "+name)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperuser ensures the current principal is a superuser.
func (m Middleware) RequireSuperuser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := identity.PrincipalFromContext(r.Context())
			if principal == nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			if !principal.Superuser {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "superuser required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
