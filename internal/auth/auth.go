// Package auth handles registration, login, and JWT issuance/verification.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/agrovalue/marketplace-api/internal/domain/user"
)

// TokenTTL is how long issued tokens stay valid.
const TokenTTL = 6 * time.Hour

var (
	// ErrInvalidCredentials is returned on a failed login. The message does
	// not distinguish a missing account from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when a presented token cannot be verified.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWeakPassword is returned when a registration password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrInvalidRole is returned when registering with an unknown role.
	ErrInvalidRole = errors.New("role must be FARMER or CUSTOMER")
)

// Claims is the JWT payload carried by issued tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// RegisterRequest holds the input for creating an account.
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Role     user.Role
}

// Token is an issued credential and the role it carries.
type Token struct {
	Value string
	Role  user.Role
}

// Service issues and verifies HS256 tokens against the user directory.
type Service struct {
	users      user.Repository
	signingKey []byte
	now        func() time.Time
}

// NewService creates an auth Service with the given HMAC signing key.
func NewService(users user.Repository, signingKey []byte) *Service {
	return &Service{users: users, signingKey: signingKey, now: time.Now}
}

// Register creates an account with a bcrypt password hash and returns a
// fresh token. Admin accounts are provisioned out of band, not registered.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Token, error) {
	if req.Role != user.RoleFarmer && req.Role != user.RoleCustomer {
		return nil, ErrInvalidRole
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	return s.issue(u)
}

// Login verifies the password and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "get user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(u)
}

// Verify parses and validates a token, returning the identity it carries.
func (s *Service) Verify(tokenString string) (*user.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	role := user.Role(claims.Role)
	if !role.Valid() {
		return nil, ErrInvalidToken
	}

	return &user.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   role,
	}, nil
}

func (s *Service) issue(u *user.User) (*Token, error) {
	now := s.now()
	claims := Claims{
		Email: u.Email,
		Role:  string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}
	return &Token{Value: signed, Role: u.Role}, nil
}
