package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyPair(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour)

	pair, err := svc.IssuePair(Identity{UserID: "user-1", Email: "a@example.com"})
	require.NoError(t, err)

	claims, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, RoleStudent, claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.Type)

	refresh, err := svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.Type)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour)
	pair, err := svc.IssuePair(Identity{UserID: "user-1", Role: RoleAdmin})
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.VerifyRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredAccessToken(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour).
		WithClock(func() time.Time { return issued })
	pair, err := svc.IssuePair(Identity{UserID: "user-1"})
	require.NoError(t, err)

	svc.WithClock(func() time.Time { return issued.Add(2 * time.Minute) })
	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = svc.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestVerifyRejectsGarbageAndForeignSecret(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret", time.Minute, time.Hour)
	other := NewTokenService("other", "other-refresh", time.Minute, time.Hour)
	pair, err := other.IssuePair(Identity{UserID: "user-1"})
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"not a jwt":      "abc.def",
		"foreign secret": pair.AccessToken,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyAccess(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	svc := NewTokenService("a", "b", time.Minute, time.Hour)
	_, err := svc.IssuePair(Identity{})
	assert.Error(t, err)
}
