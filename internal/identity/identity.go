// Package identity resolves the acting user's account id, the owner of the
// remote drafts a form creates.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/draftkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Resolver returns the current owner id or common.ErrNoOwner.
type Resolver interface {
	OwnerID(ctx context.Context) (string, error)
}

// Static always resolves to the same id.
type Static string

func (s Static) OwnerID(context.Context) (string, error) {
	if s == "" {
		return "", common.ErrNoOwner
	}
	return string(s), nil
}

// TokenResolver reads the subject of the current access token. With a
// secret the token signature (HS256) and expiry are verified; without one
// the claims are read unverified, as issued by the hosted backend.
type TokenResolver struct {
	secret []byte

	mu    sync.RWMutex
	token string
}

func NewTokenResolver(token string, secret []byte) *TokenResolver {
	return &TokenResolver{token: token, secret: secret}
}

// SetToken replaces the access token, e.g. after a login.
func (r *TokenResolver) SetToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.token = token
}

// Token returns the current access token.
func (r *TokenResolver) Token() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token
}

func (r *TokenResolver) OwnerID(_ context.Context) (string, error) {
	tok := r.Token()
	if tok == "" {
		return "", common.ErrNoOwner
	}
	return SubjectFromToken(tok, r.secret)
}

// SubjectFromToken extracts the sub claim of tokenString.
func SubjectFromToken(tokenString string, secret []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}

	if len(secret) == 0 {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
		}
	} else {
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return "", fmt.Errorf("%w: token expired", common.ErrInvalidToken)
			}
			return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
		}
		if !token.Valid {
			return "", common.ErrInvalidToken
		}
	}

	if claims.Subject == "" {
		return "", common.ErrNoOwner
	}
	return claims.Subject, nil
}

// IssueToken signs an HS256 access token for subject.
func IssueToken(subject string, secret []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	})

	s, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}
	return s, nil
}
