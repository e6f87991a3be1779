// Package auth holds the Token Codec and the typed request identity that the
// Gatekeeper attaches to a request context.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of both access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
}

// Codec signs and verifies HS256 tokens with a single key. Access and refresh
// tokens use two Codec values built from different keys.
type Codec struct {
	key []byte
	now func() time.Time
}

func NewCodec(key []byte) (*Codec, error) {
	if len(key) == 0 {
		return nil, errors.New("empty signing key")
	}
	return &Codec{key: key, now: time.Now}, nil
}

// Sign stamps issued-at and expires-at (now+ttl) plus a random token id, so
// two tokens for the same account in the same second still differ.
func (c *Codec) Sign(accountID, email string, ttl time.Duration) (string, *Claims, error) {
	jti, err := common.MakeRandToken(16)
	if err != nil {
		return "", nil, err
	}

	now := c.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AccountID: accountID,
		Email:     email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Verify checks the signature first and expiry second. Any failure maps to
// common.ErrInvalidToken or common.ErrTokenExpired; nothing is tolerated.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		// jwt/v5 checks the signature before any claim, so an expired error
		// here implies an intact signature.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if claims.AccountID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
