package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := hashPassword("pw12345678", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "pw12345678", hash)

	require.True(t, comparePassword(hash, "pw12345678"))
	require.False(t, comparePassword(hash, "wrong-password"))
	require.False(t, comparePassword("not-a-hash", "pw12345678"))
}

func TestTokenRoundTrip(t *testing.T) {
	u := &User{ID: "user-1", Username: "alice01", Role: RoleUser}
	secret := []byte("test-secret")

	tokenStr, err := signToken(u, secret, time.Hour)
	require.NoError(t, err)

	claims, err := parseToken(tokenStr, secret)
	require.NoError(t, err)
	require.Equal(t, "alice01", claims.Username)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, RoleUser, claims.Role)
}

func TestTokenWrongSecret(t *testing.T) {
	u := &User{ID: "user-1", Username: "alice01", Role: RoleUser}

	tokenStr, err := signToken(u, []byte("secret-a"), time.Hour)
	require.NoError(t, err)

	_, err = parseToken(tokenStr, []byte("secret-b"))
	require.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	u := &User{ID: "user-1", Username: "alice01", Role: RoleUser}
	secret := []byte("test-secret")

	tokenStr, err := signToken(u, secret, -time.Minute)
	require.NoError(t, err)

	_, err = parseToken(tokenStr, secret)
	require.Error(t, err)
}

func TestAccessAndRefreshSecretsArePartitioned(t *testing.T) {
	app, _, _ := newTestApp(t)
	u := &User{ID: "user-1", Username: "alice01", Role: RoleUser}

	access, err := app.issueAccessToken(u)
	require.NoError(t, err)
	refresh, err := app.issueRefreshToken(u)
	require.NoError(t, err)

	// A token issued under one secret must not verify under the other.
	_, err = app.parseRefreshToken(access)
	require.Error(t, err)
	_, err = app.parseAccessToken(refresh)
	require.Error(t, err)

	_, err = app.parseAccessToken(access)
	require.NoError(t, err)
	_, err = app.parseRefreshToken(refresh)
	require.NoError(t, err)
}

func TestGenTokenUnique(t *testing.T) {
	a, err := genToken(32)
	require.NoError(t, err)
	require.Len(t, a, 64) // hex-encoded

	b, err := genToken(32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
