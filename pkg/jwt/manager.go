package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Claims carried by moderator tokens. Level >= ModeratorLevel grants access
// to the moderation endpoints; token issuance lives in the auth service that
// fronts this backend, only verification happens here.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Level  int    `json:"level"`
}

// Manager verifies and (for tests and local tooling) issues HMAC tokens
type Manager struct {
	secretKey []byte
	tokenTTL  time.Duration
}

// NewManager creates a token manager with the given secret and TTL
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secretKey: []byte(secret), tokenTTL: ttl}
}

// GenerateToken issues a signed token for the given user and level
func (m *Manager) GenerateToken(userID string, level int) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
		UserID: userID,
		Level:  level,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// VerifyToken validates a token string and returns its claims
func (m *Manager) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
