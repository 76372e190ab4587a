package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)

	ok, err := CheckPassword(hash, "s3cret!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "x")
	assert.Error(t, err)
}

func TestTokenIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("k1", time.Hour)
	tok, exp, err := issuer.Issue(7, "HOSPITAL")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	id, claims, err := issuer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
	assert.Equal(t, "HOSPITAL", claims.Role)
}

func TestTokenRejectsForeignAndExpired(t *testing.T) {
	tok, _, err := NewTokenIssuer("other", time.Hour).Issue(7, "ADMIN")
	require.NoError(t, err)
	_, _, err = NewTokenIssuer("k1", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenIssuer("k1", time.Nanosecond)
	tok, _, err = expired.Issue(7, "ADMIN")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, _, err = expired.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = expired.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
