package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "mindspero"

// Token kinds
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// ErrWrongTokenKind is returned when a refresh token is presented as an access token or vice versa
var ErrWrongTokenKind = errors.New("auth: wrong token kind")

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// Identity is who a token is minted for
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func MintTokens(id Identity, secret string, now time.Time, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	at, err := sign(id, KindAccess, secret, now, accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	rt, err := sign(id, KindRefresh, secret, now, refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: at, RefreshToken: rt, ExpiresAt: now.Add(accessTTL)}, nil
}

func sign(id Identity, kind, secret string, now time.Time, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString([]byte(secret))
}

// ParseClaims validates tokenStr and checks it is of the expected kind
func ParseClaims(tokenStr, secret, kind string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if c.Kind != kind {
		return nil, ErrWrongTokenKind
	}
	return c, nil
}

// Identity returns the identity carried by the claims
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Role: c.Role}
}
