// Package share signs share-link tokens and manages per-link secrets.
package share

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"loantracker/internal/core"
)

var (
	ErrInvalidToken = errors.New("invalid share token")
	ErrWeakKey      = errors.New("share signing key must be at least 32 bytes")
)

// Claims is the payload carried in a share URL. The registered ID is the
// link id and the subject is the person id.
type Claims struct {
	IncludeTransactions bool `json:"tx"`
	IncludePersonalInfo bool `json:"pi"`
	jwt.RegisteredClaims
}

type Signer struct {
	key []byte
}

func NewSigner(key []byte) (*Signer, error) {
	if len(key) < 32 {
		return nil, ErrWeakKey
	}
	return &Signer{key: key}, nil
}

// Sign encodes the identifying fields of l into an HS256 token.
func (s *Signer) Sign(l core.SharedLink) (string, error) {
	claims := Claims{
		IncludeTransactions: l.IncludeTransactions,
		IncludePersonalInfo: l.IncludePersonalInfo,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        l.ID,
			Subject:   l.PersonID,
			IssuedAt:  jwt.NewNumericDate(l.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(l.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign share token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and returns the claims. Expiry is not checked
// here: the stored link decides, against the caller's clock.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Expiry returns the expiry carried in the token, or the zero time.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
