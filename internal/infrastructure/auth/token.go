package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// Token errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrInvalidFormat = errors.New("invalid authorization header format")
)

// TokenConfig defines token settings.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims is the token payload: who the actor is and in which role.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 access tokens.
type TokenService struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenService creates a TokenService. The secret must not be empty.
func NewTokenService(config TokenConfig) (*TokenService, error) {
	if config.Secret == "" {
		return nil, errors.New("auth: token secret is required")
	}
	if config.TTL <= 0 {
		config.TTL = 12 * time.Hour
	}
	return &TokenService{config: config, now: time.Now}, nil
}

// Issue signs a token for actor.
func (s *TokenService) Issue(actor shared.Actor) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.config.TTL)

	claims := &Claims{
		UserID: actor.UserID,
		Role:   string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
			Subject:   actor.UserID,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a token and returns the actor it was issued for.
func (s *TokenService) Verify(tokenString string) (shared.Actor, error) {
	if tokenString == "" {
		return shared.Actor{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return shared.Actor{}, ErrExpiredToken
		}
		return shared.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return shared.Actor{}, ErrInvalidToken
	}

	actor, err := shared.NewActor(claims.UserID, shared.Role(claims.Role))
	if err != nil {
		return shared.Actor{}, ErrInvalidToken
	}
	return actor, nil
}

// ExtractBearerToken returns the token from an Authorization header value.
func ExtractBearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrInvalidFormat
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}
