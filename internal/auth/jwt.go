// Package auth issues and validates the bearer tokens of the backend and
// hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atinyakov/crowdfund/internal/models"
)

const issuer = "crowdfund"

// TokenType is the bearer token type reported to clients.
const TokenType = "bearer"

// ErrTokenExpired is returned for a well-formed token past its expiry.
var ErrTokenExpired = errors.New("token expired")

// Claims represents the JWT claims of both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	IsAuthor   bool `json:"is_author"`
	IsInvestor bool `json:"is_investor"`
	IsAdmin    bool `json:"is_admin"`
}

// ProfileID returns the profile identifier carried in the subject.
func (c *Claims) ProfileID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// Capabilities returns the permission flags carried in the token.
func (c *Claims) Capabilities() models.Capabilities {
	return models.Capabilities{IsAdmin: c.IsAdmin, IsAuthor: c.IsAuthor, IsInvestor: c.IsInvestor}
}

// JWTService signs access and refresh tokens with separate secrets.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// Pair creates an access and a refresh token for p.
func (s *JWTService) Pair(p models.Profile) (models.AuthTokens, error) {
	access, err := s.sign(p, s.accessSecret, s.accessTTL)
	if err != nil {
		return models.AuthTokens{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(p, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return models.AuthTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return models.AuthTokens{AccessToken: access, RefreshToken: refresh, TokenType: TokenType}, nil
}

func (s *JWTService) sign(p models.Profile, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		IsAuthor:   p.IsAuthor,
		IsInvestor: p.IsInvestor,
		IsAdmin:    p.IsAdmin,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateAccess validates an access token and returns its claims.
func (s *JWTService) ValidateAccess(token string) (*Claims, error) {
	return s.validate(token, s.accessSecret)
}

// ValidateRefresh validates a refresh token and returns its claims.
func (s *JWTService) ValidateRefresh(token string) (*Claims, error) {
	return s.validate(token, s.refreshSecret)
}

func (s *JWTService) validate(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if _, err := claims.ProfileID(); err != nil {
		return nil, err
	}
	return claims, nil
}
