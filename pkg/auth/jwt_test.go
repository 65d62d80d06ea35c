package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

var vet = model.Actor{ID: "d-7", Name: "Dr. Ruiz", Role: model.RoleDoctor}

func TestIssueAndVerify(t *testing.T) {
	v := NewVerifier("s3cret", "clinic")

	token, err := v.Issue(vet, time.Hour)
	require.NoError(t, err)

	actor, exp, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, vet, actor)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("s3cret", "clinic")

	expired, err := v.Issue(vet, -time.Minute)
	require.NoError(t, err)
	otherKey, err := NewVerifier("other", "clinic").Issue(vet, time.Hour)
	require.NoError(t, err)
	otherIssuer, err := NewVerifier("s3cret", "elsewhere").Issue(vet, time.Hour)
	require.NoError(t, err)
	badRole, err := v.Issue(model.Actor{ID: "x", Role: "JANITOR"}, time.Hour)
	require.NoError(t, err)
	noSubject, err := v.Issue(model.Actor{Role: model.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: "ADMIN"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"other key":    otherKey,
		"other issuer": otherIssuer,
		"bad role":     badRole,
		"no subject":   noSubject,
		"alg none":     none,
		"garbage":      "not.a.token",
	} {
		_, _, err := v.Verify(token)
		assert.Truef(t, apperrors.CodeOf(err) == apperrors.ErrUnauthorized, "%s: %v", name, err)
	}
}
