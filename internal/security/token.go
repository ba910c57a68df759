package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oggyb/matchfeed/internal/config"
)

const (
	issuer   = "matchfeed"
	audience = "matchfeed-api"

	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carries the user id in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// TokenManager signs and verifies access and refresh tokens.
// Each kind has its own secret so one can never pass for the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(cfg *config.Config) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(cfg.JWT.AccessSecret),
		refreshSecret: []byte(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		now:           time.Now,
	}
}

// IssueAccess returns a signed access token for userID.
func (m *TokenManager) IssueAccess(userID string) (string, error) {
	token, _, err := m.issue(userID, TypeAccess, m.accessSecret, m.AccessTTL)
	return token, err
}

// IssueRefresh returns a signed refresh token and its expiry.
func (m *TokenManager) IssueRefresh(userID string) (string, time.Time, error) {
	return m.issue(userID, TypeRefresh, m.refreshSecret, m.RefreshTTL)
}

func (m *TokenManager) issue(userID, typ string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Type: typ,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccess returns the user id of a valid access token.
func (m *TokenManager) VerifyAccess(token string) (string, error) {
	return m.verify(token, TypeAccess, m.accessSecret)
}

// VerifyRefresh returns the user id of a valid refresh token.
func (m *TokenManager) VerifyRefresh(token string) (string, error) {
	return m.verify(token, TypeRefresh, m.refreshSecret)
}

func (m *TokenManager) verify(tokenString, typ string, secret []byte) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != typ || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
