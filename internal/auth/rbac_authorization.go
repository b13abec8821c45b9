package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/transport"
)

type RoleAuthorization struct {
	*transport.BaseHandler
	logger *slog.Logger
}

func NewRoleAuthorization(baseHandler *transport.BaseHandler, logger *slog.Logger) *RoleAuthorization {
	return &RoleAuthorization{
		BaseHandler: baseHandler,
		logger:      logger,
	}
}

// RequireRole lets the request through only when the caller holds one of roles.
// It must run after Protect.
func (ra *RoleAuthorization) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				ra.HandleError(w, internal.NewUnauthorizedError("Not authorized, no token", internal.ErrCodeInvalidToken))
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			ra.logger.WarnContext(r.Context(), "access denied: missing role",
				"user_id", user.ID,
				"role", user.Role,
				"required_roles", roles)
			ra.HandleError(w, internal.NewForbiddenError("Forbidden: You do not have the required role.", internal.ErrCodeForbiddenRole))
		})
	}
}
