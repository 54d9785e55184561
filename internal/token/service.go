// Package token issues and verifies the signed identity assertions used by
// the session gate. Tokens are stateless: nothing is persisted, and
// revocation beyond natural expiry is not supported.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pitchside/pkg/domain"
)

// Claims are the identity assertions embedded in every token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Kind discriminates the two token families. Each kind is signed with its own
// secret; a token of one kind must never verify against the other's secret.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Verification errors. The session gate maps all three to HTTP 401; they are
// distinct so callers and tests can tell expiry from tampering.
var (
	ErrExpired          = errors.New("token has expired")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrMalformed        = errors.New("token is malformed")
)

// ErrMissingSecret is a startup-time configuration failure, never a
// per-request condition.
var ErrMissingSecret = errors.New("token signing secret is not set")

// Identity is the subset of an identity record a token asserts.
type Identity struct {
	ID    uuid.UUID
	Email string
	Role  domain.Role
}

// Pair bundles the two tokens issued for one login event. Both carry
// identical identity claims.
type Pair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

// Service signs and verifies access and refresh tokens.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string

	// now is injectable for expiry tests.
	now func() time.Time
}

// NewService builds a token service. Both secrets are mandatory and must be
// distinct; the config layer rejects equal secrets before this is reached.
func NewService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Service, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, ErrMissingSecret
	}
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        "pitchside",
		now:           time.Now,
	}, nil
}

// IssueAccess signs a short-lived access token for the identity.
func (s *Service) IssueAccess(ident Identity) (string, error) {
	return s.issue(ident, s.accessSecret, s.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the identity.
func (s *Service) IssueRefresh(ident Identity) (string, error) {
	return s.issue(ident, s.refreshSecret, s.refreshTTL)
}

// IssuePair issues both tokens for one login event. Both calls are pure
// functions of the same input, so no atomicity is needed.
func (s *Service) IssuePair(ident Identity) (Pair, error) {
	access, err := s.IssueAccess(ident)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.IssueRefresh(ident)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL,
	}, nil
}

// VerifyAccess verifies signature and expiry against the access secret.
func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.accessSecret)
}

// VerifyRefresh verifies signature and expiry against the refresh secret.
func (s *Service) VerifyRefresh(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.refreshSecret)
}

func (s *Service) issue(ident Identity, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: ident.ID.String(),
		Email:  ident.Email,
		Role:   string(ident.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(secret)
}

func (s *Service) verify(tokenString string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}
	if !parsed.Valid {
		return nil, ErrMalformed
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrMalformed
	}
	return claims, nil
}
