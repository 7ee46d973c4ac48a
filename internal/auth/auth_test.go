package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	tok, err := iss.Issue("ABC123", "player-1")
	require.NoError(t, err)

	claims, err := iss.Parse(tok, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "player-1", claims.PlayerID)
	assert.Equal(t, "ABC123", claims.SessionCode)
}

func TestParseRejects(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)
	other, err := NewIssuer("different", time.Hour)
	require.NoError(t, err)

	good, err := iss.Issue("ABC123", "player-1")
	require.NoError(t, err)
	forged, err := other.Issue("ABC123", "player-1")
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return start }
	old, err := iss.Issue("ABC123", "player-1")
	require.NoError(t, err)
	iss.now = func() time.Time { return start.Add(2 * time.Hour) }

	none := jwt.NewWithClaims(jwt.SigningMethodNone, PlayerClaims{SessionCode: "ABC123", PlayerID: "p"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
		code  string
	}{
		{"wrong session", good, "ZZZ999"},
		{"wrong secret", forged, "ABC123"},
		{"expired", old, "ABC123"},
		{"alg none", unsigned, "ABC123"},
		{"garbage", "not-a-token", "ABC123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := iss.Parse(tc.token, tc.code)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
}
