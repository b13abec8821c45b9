package auth

import (
	"net/http"
	"time"

	"github.com/frahmantamala/linkup-hub/internal"
	profilepkg "github.com/frahmantamala/linkup-hub/internal/profile"
	"github.com/frahmantamala/linkup-hub/internal/transport"
	"github.com/frahmantamala/linkup-hub/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service      ServiceAPI
	CookieSecure bool
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, cookieSecure bool) *Handler {
	return &Handler{
		BaseHandler:  baseHandler,
		Service:      svc,
		CookieSecure: cookieSecure,
	}
}

// Signup handles POST /api/v1/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var dto SignupDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleError(w, err)
		return
	}

	p, err := h.Service.Signup(r.Context(), dto)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, profilepkg.ToProfileResponse(p))
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(w, r, &dto); err != nil {
		h.HandleError(w, err)
		return
	}

	session, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("authentication failed", "error", err)
		h.HandleError(w, err)
		return
	}

	h.setSessionCookie(w, session.Token, session.ExpiresAt)
	h.WriteJSON(w, http.StatusOK, profilepkg.ToProfileResponse(session.Profile))
}

// Logout handles POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", time.Unix(0, 0))
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me handles GET /api/v1/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok || user == nil {
		h.HandleError(w, internal.NewUnauthorizedError("Not authorized, no token", internal.ErrCodeInvalidToken))
		return
	}

	p, err := h.Service.Me(r.Context(), user.ID)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, profilepkg.ToProfileResponse(p))
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if token == "" {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}

// Protect reads the session from the accessToken cookie, falling back to a
// Bearer header, and stores the caller in the request context.
func (h *Handler) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(CookieName); err == nil {
			token = c.Value
		}
		if token == "" {
			token = h.ExtractTokenFromHeader(r)
		}

		user, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			h.HandleError(w, err)
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		ctx = internal.ContextWithIdentity(ctx, user.ID, user.Role)
		ctx = logger.With(ctx, "userID", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
