package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/safetyops/permit-management/internal/user"
)

// CookieName is the http-only session cookie carrying the JWT. The middleware
// resolves credentials from this cookie first, then from the Authorization
// header; the order is fixed and applied uniformly.
const CookieName = "permit_session"

// Claims is the token payload: identity, email and role plus standard expiry
// metadata. Nothing else may influence verification.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenGenerator issues and verifies signed session tokens.
type TokenGenerator interface {
	Issue(userID int64, email, role string) (token string, err error)
	Verify(tokenString string) (*Claims, error)
}

// ServiceAPI is the surface the HTTP handler depends on.
type ServiceAPI interface {
	Signup(dto SignupDTO) (*user.User, string, error)
	Login(dto LoginDTO) (*user.User, string, error)
	VerifyToken(tokenString string) (*Claims, error)
	GetUser(userID int64) (*user.User, error)
}

var (
	ErrUnknownUser   = errors.New("user not registered")
	ErrWrongPassword = errors.New("incorrect password")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
)

type ctxKey string

const contextUserKey ctxKey = "authUser"

type contextUser struct {
	user  *user.User
	scope Scope
}

// ContextWithUser stores the verified caller and their derived scope.
func ContextWithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, contextUserKey, contextUser{user: u, scope: ScopeFor(u)})
}

// UserFromContext returns the verified caller attached by the middleware.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	cu, ok := ctx.Value(contextUserKey).(contextUser)
	if !ok || cu.user == nil {
		return nil, false
	}
	return cu.user, true
}

// ScopeFromContext returns the caller's visibility scope.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	cu, ok := ctx.Value(contextUserKey).(contextUser)
	if !ok || cu.user == nil {
		return Scope{}, false
	}
	return cu.scope, true
}
