package auth

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/profile"
	"github.com/golang-jwt/jwt/v5"
)

const CookieName = "accessToken"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrAccountSuspended   = errors.New("account suspended")
)

// User is the authenticated caller, stored in the request context by Protect.
type User struct {
	ID             string `json:"id"`
	Role           string `json:"role"`
	IsShadowBanned bool   `json:"-"`
}

type userCtxKey struct{}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*User)
	return u, ok
}

// Claims is the session token body.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type TokenGenerator interface {
	GenerateAccessToken(userID, role string) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// ProfileStore is the slice of the profile repository auth needs.
type ProfileStore interface {
	Create(ctx context.Context, p *profile.Profile) error
	GetByID(ctx context.Context, id string) (*profile.Profile, error)
	GetByEmail(ctx context.Context, email string) (*profile.Profile, error)
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
}

type ServiceAPI interface {
	Signup(ctx context.Context, dto SignupDTO) (*profile.Profile, error)
	Login(ctx context.Context, dto LoginDTO) (*Session, error)
	Me(ctx context.Context, userID string) (*profile.Profile, error)
	Authenticate(ctx context.Context, token string) (*User, error)
}

// Session is a signed token plus the profile it was issued for.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Profile   *profile.Profile
}
