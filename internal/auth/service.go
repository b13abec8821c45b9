package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/linkup-hub/internal"
	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/profile"
	profilepkg "github.com/frahmantamala/linkup-hub/internal/profile"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service is the main auth service with dependencies
type Service struct {
	profiles       ProfileStore
	tokenGenerator TokenGenerator
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(profiles ProfileStore, tokenGen TokenGenerator, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		profiles:       profiles,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

type JWTTokenGenerator struct {
	Secret []byte
	TTL    time.Duration
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret: []byte(secret),
		TTL:    ttl,
	}
}

func (s *Service) Signup(ctx context.Context, dto SignupDTO) (*profile.Profile, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	emailTaken, err := s.profiles.EmailTaken(ctx, dto.Email)
	if err != nil {
		return nil, internal.NewInternalError("failed to check email", err)
	}
	if emailTaken {
		return nil, internal.NewConflictError("User with this email already exists.", internal.ErrCodeEmailTaken)
	}
	usernameTaken, err := s.profiles.UsernameTaken(ctx, dto.Username, "")
	if err != nil {
		return nil, internal.NewInternalError("failed to check username", err)
	}
	if usernameTaken {
		return nil, internal.NewConflictError("Username is already taken.", internal.ErrCodeUsernameTaken)
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	p := &profile.Profile{
		ID:           uuid.NewString(),
		Email:        dto.Email,
		PasswordHash: hash,
		Username:     dto.Username,
		Role:         profile.RoleUser,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		switch {
		case errors.Is(err, profilepkg.ErrEmailTaken):
			return nil, internal.NewConflictError("User with this email already exists.", internal.ErrCodeEmailTaken)
		case errors.Is(err, profilepkg.ErrUsernameTaken):
			return nil, internal.NewConflictError("Username is already taken.", internal.ErrCodeUsernameTaken)
		}
		return nil, internal.NewInternalError("failed to create profile", err)
	}

	s.logger.Info("user signed up", "user_id", p.ID)
	return p, nil
}

// Login validates credentials and returns a session token
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*Session, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	invalid := internal.NewUnauthorizedError("Invalid email or password.", internal.ErrCodeInvalidCredentials).WithCause(ErrInvalidCredentials)

	p, err := s.profiles.GetByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, profilepkg.ErrNotFound) {
			return nil, invalid
		}
		return nil, internal.NewInternalError("failed to load profile", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(dto.Password)); err != nil {
		return nil, invalid
	}
	if p.IsShadowBanned {
		return nil, internal.NewForbiddenError("Your account has been suspended.", internal.ErrCodeAccountSuspended).WithCause(ErrAccountSuspended)
	}

	token, expiresAt, err := s.tokenGenerator.GenerateAccessToken(p.ID, p.Role)
	if err != nil {
		return nil, internal.NewInternalError("failed to issue session", err)
	}

	return &Session{Token: token, ExpiresAt: expiresAt, Profile: p}, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*profile.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, profilepkg.ErrNotFound) {
			return nil, internal.NewNotFoundError("Profile not found", internal.ErrCodeProfileNotFound)
		}
		return nil, internal.NewInternalError("failed to load profile", err)
	}
	return p, nil
}

// Authenticate turns a session token into the current user. The role and ban
// flag are read fresh from the store, not trusted from the token.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, internal.NewUnauthorizedError("Not authorized, no token", internal.ErrCodeInvalidToken)
	}

	claims, err := s.tokenGenerator.ValidateToken(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, internal.NewUnauthorizedError("Not authorized, token expired", internal.ErrCodeTokenExpired)
		}
		return nil, internal.NewUnauthorizedError("Not authorized, token failed", internal.ErrCodeInvalidToken)
	}

	p, err := s.profiles.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, profilepkg.ErrNotFound) {
			return nil, internal.NewUnauthorizedError("Not authorized, user not found", internal.ErrCodeInvalidToken)
		}
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if p.IsShadowBanned {
		return nil, internal.NewForbiddenError("Account is suspended.", internal.ErrCodeAccountSuspended)
	}

	return &User{ID: p.ID, Role: p.Role, IsShadowBanned: p.IsShadowBanned}, nil
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID, role string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.TTL)

	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
