package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/safetyops/permit-management/internal"
	"github.com/safetyops/permit-management/internal/transport"
	"github.com/safetyops/permit-management/internal/user"
	"github.com/safetyops/permit-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service       ServiceAPI
	cookieTTL     time.Duration
	secureCookies bool
}

func NewHandler(svc ServiceAPI, cookieTTL time.Duration, secureCookies bool) *Handler {
	return &Handler{
		BaseHandler:   transport.NewBaseHandler(logger.L()),
		Service:       svc,
		cookieTTL:     cookieTTL,
		secureCookies: secureCookies,
	}
}

type sessionResponse struct {
	Message string       `json:"message"`
	User    user.Summary `json:"user"`
	Token   string       `json:"token"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var dto SignupDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	u, token, err := h.Service.Signup(dto)
	if err != nil {
		h.Logger.Error("signup failed", "error", err, "email", dto.Email)
		h.writeAuthError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	h.Logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	h.WriteJSON(w, http.StatusCreated, sessionResponse{
		Message: "User Registered",
		User:    u.Summary(),
		Token:   token,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	u, token, err := h.Service.Login(dto)
	if err != nil {
		h.Logger.Error("login failed", "error", err, "email", dto.Email)
		h.writeAuthError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	h.Logger.Info("user logged in", "user_id", u.ID, "role", u.Role)
	h.WriteJSON(w, http.StatusOK, sessionResponse{
		Message: "Login Successful",
		User:    u.Summary(),
		Token:   token,
	})
}

// Logout clears the session cookie. Tokens are stateless, so an already
// issued token stays valid until its expiry; there is no server-side
// revocation list.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Successfully Logged Out"})
}

// VerifyAuth echoes the verified identity back to the caller.
func (h *Handler) VerifyAuth(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.NewUnauthorizedError("missing credentials", internal.ErrCodeNoCredential))
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Authenticated",
		"user":    u.Summary(),
	})
}

// AuthMiddleware verifies the session token, resolves the caller against the
// credential store and attaches identity + scope to the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.extractToken(r)
		if token == "" {
			h.WriteAppError(w, internal.NewUnauthorizedError("no token found", internal.ErrCodeNoCredential))
			return
		}

		claims, err := h.Service.VerifyToken(token)
		if err != nil {
			h.Logger.Warn("token verification failed", "error", err)
			if errors.Is(err, ErrTokenExpired) {
				h.WriteAppError(w, internal.NewUnauthorizedError("token has expired", internal.ErrCodeTokenExpired))
				return
			}
			h.WriteAppError(w, internal.NewUnauthorizedError("token verification failed", internal.ErrCodeInvalidCredential))
			return
		}

		// A token can outlive its subject; never proceed with a stale identity.
		u, err := h.Service.GetUser(claims.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				h.WriteAppError(w, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound))
				return
			}
			h.HandleServiceError(w, err)
			return
		}

		ctx := logger.With(ContextWithUser(r.Context(), u), "user_id", u.ID, "role", u.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken resolves the session token: cookie first, then bearer header.
func (h *Handler) extractToken(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return h.ExtractTokenFromHeader(r)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookies,
	})
}

func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrDuplicateEmail):
		h.WriteAppError(w, internal.NewValidationError("user already registered", internal.ErrCodeDuplicateEmail))
	case errors.Is(err, user.ErrDuplicateAdmin):
		h.WriteAppError(w, internal.NewValidationError("an admin is already registered", internal.ErrCodeDuplicateAdmin))
	case errors.Is(err, ErrUnknownUser):
		h.WriteAppError(w, internal.NewUnauthorizedError("user not registered", internal.ErrCodeUnknownUser))
	case errors.Is(err, ErrWrongPassword):
		h.WriteAppError(w, internal.NewForbiddenError("incorrect password", internal.ErrCodeWrongPassword))
	default:
		var vErr ValidationError
		if errors.As(err, &vErr) {
			h.WriteAppError(w, internal.NewValidationError(vErr.Error(), internal.ErrCodeValidationFailed))
			return
		}
		h.HandleServiceError(w, err)
	}
}
