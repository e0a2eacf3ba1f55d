package identity

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/draftkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	id, err := Static("u1").OwnerID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	_, err = Static("").OwnerID(context.Background())
	require.ErrorIs(t, err, common.ErrNoOwner)
}

func TestSubjectFromToken_Verified(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	tok, err := IssueToken("user-123", secret, time.Hour)
	require.NoError(t, err)

	sub, err := SubjectFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", sub)
}

func TestSubjectFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := IssueToken("u1", secret, -time.Second)
	require.NoError(t, err)

	_, err = SubjectFromToken(tok, secret)
	require.ErrorIs(t, err, common.ErrInvalidToken)
	assert.Contains(t, err.Error(), "expired")
}

func TestSubjectFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := IssueToken("u2", []byte("right-secret"), time.Hour)
	require.NoError(t, err)

	_, err = SubjectFromToken(tok, []byte("wrong-secret"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestSubjectFromToken_Unverified(t *testing.T) {
	t.Parallel()

	tok, err := IssueToken("hosted-user", []byte("backend-only-secret"), time.Hour)
	require.NoError(t, err)

	sub, err := SubjectFromToken(tok, nil)
	require.NoError(t, err)
	assert.Equal(t, "hosted-user", sub)
}

func TestSubjectFromToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "u1"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = SubjectFromToken(tok, []byte("secret"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestSubjectFromToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := SubjectFromToken("not-a-jwt", nil)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestSubjectFromToken_NoSubject(t *testing.T) {
	t.Parallel()

	tok, err := IssueToken("", []byte("s"), time.Hour)
	require.NoError(t, err)

	_, err = SubjectFromToken(tok, []byte("s"))
	require.ErrorIs(t, err, common.ErrNoOwner)
}

func TestTokenResolver(t *testing.T) {
	ctx := context.Background()
	secret := []byte("s")
	r := NewTokenResolver("", secret)

	_, err := r.OwnerID(ctx)
	require.ErrorIs(t, err, common.ErrNoOwner)

	tok, err := IssueToken("u7", secret, time.Hour)
	require.NoError(t, err)
	r.SetToken(tok)

	id, err := r.OwnerID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u7", id)
	assert.Equal(t, tok, r.Token())
}
