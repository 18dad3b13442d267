package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// MinSecretLength is the minimum accepted length of the signing secret.
const MinSecretLength = 32

var (
	// ErrInvalidToken covers malformed, badly signed, and expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrWrongTokenType is returned when a token of the other type is presented.
	ErrWrongTokenType = errors.New("invalid token type")
)

// Claims are the JWT claims issued to a team. Subject is the team email.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      quartz.Clock
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithTokenClock overrides the clock used for iat/exp.
func WithTokenClock(c quartz.Clock) TokenOption {
	return func(t *TokenIssuer) {
		t.clock = c
	}
}

// NewTokenIssuer creates a TokenIssuer. The secret must be at least
// MinSecretLength bytes.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration, opts ...TokenOption) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d characters", MinSecretLength)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}
	t := &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// IssueAccess signs a short-lived access token for the team.
func (t *TokenIssuer) IssueAccess(teamEmail string) (string, error) {
	return t.issue(teamEmail, TokenTypeAccess, t.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the team.
func (t *TokenIssuer) IssueRefresh(teamEmail string) (string, error) {
	return t.issue(teamEmail, TokenTypeRefresh, t.refreshTTL)
}

func (t *TokenIssuer) issue(subject, tokenType string, ttl time.Duration) (string, error) {
	now := t.clock.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: tokenType,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the token's signature and expiry against the issuer's
// clock. It does not check the token type.
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	now := t.clock.Now()
	if !claims.VerifyExpiresAt(now, true) || !claims.VerifyNotBefore(now, false) {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &claims, nil
}

// Verify parses the token and checks that it is of the wanted type.
// Returns the team email on success.
func (t *TokenIssuer) Verify(raw, wantType string) (string, error) {
	claims, err := t.Parse(raw)
	if err != nil {
		return "", err
	}
	if claims.Type != wantType {
		return "", ErrWrongTokenType
	}
	return claims.Subject, nil
}
