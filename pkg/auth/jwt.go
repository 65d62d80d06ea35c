// Package auth turns bearer tokens from the identity provider into actors.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

// Claims carried by clinic tokens. Subject is the staff member id.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify checks the signature, expiry and issuer of raw and returns the
// actor it names together with the token expiry.
func (v *Verifier) Verify(raw string) (model.Actor, time.Time, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return model.Actor{}, time.Time{}, apperrors.Unauthorized(err)
	}

	if claims.Subject == "" {
		return model.Actor{}, time.Time{}, apperrors.Unauthorized(errors.New("token has no subject"))
	}
	role, ok := model.ParseRole(claims.Role)
	if !ok {
		return model.Actor{}, time.Time{}, apperrors.Unauthorized(fmt.Errorf("unknown role %q", claims.Role))
	}

	actor := model.Actor{ID: claims.Subject, Name: claims.Name, Role: role}
	return actor, claims.ExpiresAt.Time, nil
}

// Issue signs a token for actor. It backs local tooling and tests; production
// tokens come from the identity provider.
func (v *Verifier) Issue(actor model.Actor, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		Name: actor.Name,
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
